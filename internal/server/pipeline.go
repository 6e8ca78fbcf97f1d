package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

var (
	errRunning = errors.New("a pipeline run is in progress")
	errNoKV    = errors.New("no settings store configured")
)

type runBody struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// runArgs fills in the api key and model from the current settings.
func (s *Server) runArgs(r *http.Request) (apiKey, model string, err error) {
	var body runBody
	if r.ContentLength != 0 {
		if err := decode(r, &body); err != nil {
			return "", "", err
		}
	}
	cur := s.currentSettings()
	apiKey, model = body.APIKey, body.Model
	if strings.TrimSpace(apiKey) == "" {
		apiKey = cur.APIKey
	}
	if strings.TrimSpace(model) == "" {
		model = cur.Selection.Model
	}
	return apiKey, model, nil
}

// holdGate takes the session's loading gate for a whole-session replace, so
// a pipeline run can neither be in flight nor start until EndRun. It writes
// 409 and returns false when a run holds the gate.
func (s *Server) holdGate(w http.ResponseWriter) bool {
	if !s.session.BeginRun() {
		s.writeError(w, http.StatusConflict, errRunning)
		return false
	}
	return true
}

// pipelineStatus is like statusFor, except that errors the pipeline does not
// classify came from the provider.
func pipelineStatus(err error) int {
	if st := statusFor(err); st != http.StatusInternalServerError {
		return st
	}
	return http.StatusBadGateway
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request,
	run func(ctx context.Context, sess *session.Session, apiKey, model string) (session.Output, error)) {
	apiKey, model, err := s.runArgs(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := run(r.Context(), s.session, apiKey, model)
	if err != nil {
		s.writeError(w, pipelineStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	s.runPipeline(w, r, s.orch.Start)
}

func (s *Server) refineAgain(w http.ResponseWriter, r *http.Request) {
	s.runPipeline(w, r, s.orch.RefineAgain)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Loading        bool           `json:"loading"`
		Output         session.Output `json:"output"`
		Lines          int            `json:"lines"`
		SourceLanguage string         `json:"source_language,omitempty"`
	}{
		Loading: s.session.Loading(),
		Output:  s.session.Output(),
		Lines:   len(s.session.Lines()),
	}
	if s.config.Detector != nil {
		if code, ok := s.config.Detector.DetectISO(s.session.SourceText()); ok {
			resp.SourceLanguage = code
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- models and provider ---

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	var models []provider.Model
	if p := r.URL.Query().Get("provider"); p != "" {
		models = s.config.Catalog.ModelsFor(p)
	} else {
		models = s.config.Catalog.Models()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":    nonNil(models),
		"selection": s.currentSettings().Selection,
	})
}

func (s *Server) addModel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := s.config.Catalog.AddCustomModel(body.ID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// setProvider switches provider and/or model and optionally stores an api
// key. A given model must belong to the given provider.
func (s *Server) setProvider(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Provider string  `json:"provider"`
		Model    string  `json:"model"`
		APIKey   *string `json:"api_key"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	sel := s.currentSettings().Selection
	var err error
	switch {
	case body.Model != "":
		sel, err = s.config.Catalog.Select(body.Model)
		if err == nil && body.Provider != "" && body.Provider != sel.Provider {
			err = fmt.Errorf("%w: %s is served by %s", provider.ErrUnknownModel, body.Model, sel.Provider)
		}
	case body.Provider != "":
		sel, err = s.config.Catalog.SwitchProvider(sel, body.Provider)
	}
	if err != nil {
		s.fail(w, err)
		return
	}

	updated := s.updateSettings(func(st *persistence.Settings) {
		st.Selection = sel
		if body.APIKey != nil {
			st.APIKey = strings.TrimSpace(*body.APIKey)
		}
	})
	if body.APIKey != nil {
		s.config.Audit.Report(r.Context(), updated.APIKey, sel.Provider, sel.Model)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selection":   updated.Selection,
		"api_key_set": updated.APIKey != "",
	})
}

// --- saved settings ---

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	if s.config.KV == nil {
		s.writeError(w, http.StatusNotImplemented, errNoKV)
		return
	}
	if err := persistence.SaveSettings(r.Context(), s.config.KV, s.session, s.config.Catalog, s.currentSettings()); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) loadSettings(w http.ResponseWriter, r *http.Request) {
	if s.config.KV == nil {
		s.writeError(w, http.StatusNotImplemented, errNoKV)
		return
	}
	if !s.holdGate(w) {
		return
	}
	defer s.session.EndRun()

	loaded, warnings, found, err := persistence.LoadSettings(r.Context(), s.config.KV, s.session, s.config.Catalog)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, errors.New("no saved settings"))
		return
	}
	s.updateSettings(func(st *persistence.Settings) {
		*st = loaded.WithSelection(st.Selection)
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": nonNil(warnings)})
}

func (s *Server) clearSettings(w http.ResponseWriter, r *http.Request) {
	if s.config.KV == nil {
		s.writeError(w, http.StatusNotImplemented, errNoKV)
		return
	}
	if err := persistence.ClearSettings(r.Context(), s.config.KV); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
