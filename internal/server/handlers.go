package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/valpere/dichai/internal/persistence"
	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

type sessionResponse struct {
	Session      session.Snapshot   `json:"session"`
	Selection    provider.Selection `json:"selection"`
	CustomModels []provider.Model   `json:"custom_models"`
	Dirty        bool               `json:"dirty"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Session:      s.session.Snapshot(),
		Selection:    s.currentSettings().Selection,
		CustomModels: s.config.Catalog.CustomModels(),
		Dirty:        s.session.Dirty(),
	})
}

// putSession replaces the session with a persistence document. A document
// without a selection keeps the current one.
func (s *Server) putSession(w http.ResponseWriter, r *http.Request) {
	if !s.holdGate(w) {
		return
	}
	defer s.session.EndRun()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errBadBody)
		return
	}
	loaded, warnings, err := persistence.Deserialize(data, s.session, s.config.Catalog)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.updateSettings(func(st *persistence.Settings) {
		st.Selection = loaded.WithSelection(st.Selection).Selection
		if loaded.APIKey != "" {
			st.APIKey = loaded.APIKey
		}
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": nonNil(warnings)})
}

func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Context      *string `json:"context"`
		Genre        *string `json:"genre"`
		Style        *string `json:"style"`
		Requirements *string `json:"requirements"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Context != nil {
		s.session.SetContext(*body.Context)
	}
	if body.Genre != nil {
		s.session.SetGenre(*body.Genre)
	}
	if body.Style != nil {
		s.session.SetStyle(*body.Style)
	}
	if body.Requirements != nil {
		s.session.SetRequirements(*body.Requirements)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	if !s.holdGate(w) {
		return
	}
	defer s.session.EndRun()

	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// --- characters ---

func (s *Server) addCharacter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.AddCharacter(body.Name); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"characters": s.session.Characters()})
}

func (s *Server) renameCharacter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.RenameCharacter(param(r, "name"), body.Name); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"characters": s.session.Characters()})
}

func (s *Server) removeCharacter(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveCharacter(param(r, "name")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- relationships ---

type relationshipBody struct {
	Description string `json:"description"`
}

func (s *Server) addRelationship(w http.ResponseWriter, r *http.Request) {
	var body relationshipBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id := s.session.AddRelationship(body.Description)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) editRelationship(w http.ResponseWriter, r *http.Request) {
	var body relationshipBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.EditRelationship(param(r, "id"), body.Description); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeRelationship(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveRelationship(param(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- pronoun rules ---

type pronounBody struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	SelfValue string `json:"self_value"`
}

func (s *Server) addPronoun(w http.ResponseWriter, r *http.Request) {
	var body pronounBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.session.AddPronoun(body.From, body.To, body.Value, body.SelfValue)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) editPronoun(w http.ResponseWriter, r *http.Request) {
	var body pronounBody
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.EditPronoun(param(r, "id"), body.From, body.To, body.Value, body.SelfValue); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removePronoun(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemovePronoun(param(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pronounTargets lists the characters a rule from ?from= may point at. ?id=
// names the rule being edited. With ?to= the pair itself is checked first,
// so a form can reject it before submitting.
func (s *Server) pronounTargets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, id := q.Get("from"), q.Get("to"), q.Get("id")
	for _, name := range []string{from, to} {
		if name != "" && !s.session.HasCharacter(name) {
			s.fail(w, fmt.Errorf("%w: %s", session.ErrUnknownCharacter, name))
			return
		}
	}
	if to != "" {
		if err := s.session.ValidatePair(from, to, id); err != nil {
			s.fail(w, err)
			return
		}
	}
	targets := s.session.AvailableTargets(from, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"targets": nonNil(targets)})
}

// --- expressions ---

func (s *Server) addExpression(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tag string `json:"tag"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.AddExpression(body.Tag); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"expressions": s.session.Expressions()})
}

func (s *Server) removeExpression(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveExpression(param(r, "tag")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- text lines ---

func (s *Server) addLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text       string `json:"text"`
		Character  string `json:"character"`
		Expression string `json:"expression"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.session.AddTextLine(body.Text, body.Character, body.Expression)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) importLines(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	n := s.session.ImportText(body.Content)
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (s *Server) editLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text       *string `json:"text"`
		Character  *string `json:"character"`
		Expression *string `json:"expression"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id := param(r, "id")
	if body.Text != nil {
		if err := s.session.EditTextLineText(id, *body.Text); err != nil {
			s.fail(w, err)
			return
		}
	}
	if body.Character != nil {
		if err := s.session.SetLineCharacter(id, *body.Character); err != nil {
			s.fail(w, err)
			return
		}
	}
	if body.Expression != nil {
		if err := s.session.SetLineExpression(id, *body.Expression); err != nil {
			s.fail(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeLine(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveTextLine(param(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveLine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Direction string `json:"direction"`
	}
	if err := decode(r, &body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := session.ParseDirection(body.Direction)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.ReorderTextLine(param(r, "id"), dir); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
