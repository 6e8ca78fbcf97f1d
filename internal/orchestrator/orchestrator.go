// Package orchestrator drives the translate -> refine -> refine-again
// pipeline over a session.
//
// A session runs at most one pipeline at a time. Start and RefineAgain take
// the session's loading gate before anything else and release it on every
// return path; a second call while the gate is held fails with ErrBusy.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/dichai/internal"
	"github.com/valpere/dichai/internal/linecodec"
	"github.com/valpere/dichai/internal/metrics"
	"github.com/valpere/dichai/internal/prompt"
	"github.com/valpere/dichai/internal/session"
)

const (
	StageTranslate   = "translate"
	StageRefine      = "refine"
	StageRefineAgain = "refine_again"

	KindStart       = "start"
	KindRefineAgain = "refine_again"
)

// targetLang is the language refined output is expected to be in.
const targetLang = "vi"

var (
	ErrBusy            = errors.New("a pipeline run is already in progress")
	ErrNothingToRefine = errors.New("no finished translation to refine")
)

// ValidationError means a run could not start because an input was missing.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing %s", e.Field)
}

// Caller sends a prompt to a model and returns its reply text.
type Caller interface {
	CallModel(ctx context.Context, model, apiKey, prompt string) (string, error)
}

// Recorder persists run history. Failures are logged and never abort a run.
type Recorder interface {
	SaveRun(ctx context.Context, run internal.RunRecord) error
	SaveStage(ctx context.Context, stage internal.StageRecord) error
}

// LanguageChecker reports whether the translated lines of refined are
// written in lang.
type LanguageChecker interface {
	CheckRefined(refined string, lines []session.TextLine, lang string) (bool, error)
}

type Config struct {
	Recorder  Recorder
	Validator LanguageChecker
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

type Orchestrator struct {
	caller Caller
	config Config
	logger *zap.Logger
}

func New(caller Caller, config Config) *Orchestrator {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{caller: caller, config: config, logger: logger}
}

// run carries the bookkeeping for one Start or RefineAgain call.
type run struct {
	record internal.RunRecord
}

func (o *Orchestrator) newRun(kind, model, source string) *run {
	r := &run{record: internal.RunRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		Model:      model,
		SourceText: source,
		StartedAt:  time.Now(),
	}}
	if pf, ok := o.caller.(interface{ ProviderFor(string) string }); ok {
		r.record.Provider = pf.ProviderFor(model)
	}
	return r
}

func validate(apiKey, model string) error {
	if strings.TrimSpace(apiKey) == "" {
		return &ValidationError{Field: "api key"}
	}
	if strings.TrimSpace(model) == "" {
		return &ValidationError{Field: "model"}
	}
	return nil
}

// Start runs translate then refine. On success the session is Done and holds
// the refined translation. On failure the session is Failed, its outputs are
// cleared, and the provider error is returned unchanged.
func (o *Orchestrator) Start(ctx context.Context, s *session.Session, apiKey, model string) (session.Output, error) {
	if !s.BeginRun() {
		return s.Output(), ErrBusy
	}
	defer s.EndRun()

	snap := s.Snapshot()
	if strings.TrimSpace(snap.SourceText()) == "" {
		return s.Output(), &ValidationError{Field: "source text"}
	}
	if err := validate(apiKey, model); err != nil {
		return s.Output(), err
	}

	r := o.newRun(KindStart, model, snap.SourceText())
	kept := linecodec.KeptLines(snap.Lines)
	s.ClearOutputs()

	s.SetStatus(session.StatusTranslating)
	reply, err := o.stage(ctx, r, StageTranslate, apiKey, prompt.BuildTranslation(snap))
	if err != nil {
		return o.fail(ctx, s, r, err)
	}
	draft := linecodec.Retag(kept.StripPartial(reply))
	s.SetDraft(draft)

	s.SetStatus(session.StatusRefining)
	reply, err = o.stage(ctx, r, StageRefine, apiKey, prompt.BuildRefinement(draft, prompt.ExtractInfo(snap)))
	if err != nil {
		return o.fail(ctx, s, r, err)
	}
	refined := kept.StripFull(reply)
	s.SetRefined(refined, false)
	s.SetStatus(session.StatusDone)

	o.inspect(refined, snap.Lines)
	return o.finish(ctx, s, r, refined)
}

// RefineAgain polishes the current refined translation once more and
// replaces it. The session must be Done with a non-empty result.
func (o *Orchestrator) RefineAgain(ctx context.Context, s *session.Session, apiKey, model string) (session.Output, error) {
	if !s.BeginRun() {
		return s.Output(), ErrBusy
	}
	defer s.EndRun()

	if err := validate(apiKey, model); err != nil {
		return s.Output(), err
	}
	current := s.Output()
	if current.Status != session.StatusDone || strings.TrimSpace(current.Refined) == "" {
		return current, ErrNothingToRefine
	}

	snap := s.Snapshot()
	r := o.newRun(KindRefineAgain, model, snap.SourceText())
	if n, m := prompt.CountContentLines(current.Refined), len(snap.Lines); n != m {
		o.logger.Warn("Output line count differs from source, tags are aligned by position",
			zap.Int("output_lines", n), zap.Int("source_lines", m))
	}

	s.SetStatus(session.StatusRefiningAgain)
	p := prompt.BuildAdditionalRefinement(current.Refined, snap.Lines, prompt.ExtractInfo(snap))
	reply, err := o.stage(ctx, r, StageRefineAgain, apiKey, p)
	if err != nil {
		return o.fail(ctx, s, r, err)
	}
	refined := linecodec.KeptLines(snap.Lines).StripFull(reply)
	s.SetRefined(refined, true)
	s.SetStatus(session.StatusDone)

	o.inspect(refined, snap.Lines)
	return o.finish(ctx, s, r, refined)
}

func (o *Orchestrator) stage(ctx context.Context, r *run, name, apiKey, text string) (string, error) {
	start := time.Now()
	reply, err := o.caller.CallModel(ctx, r.record.Model, apiKey, text)
	elapsed := time.Since(start)

	o.config.Metrics.ObserveStage(name, err, elapsed)

	rec := internal.StageRecord{
		RunID:     r.record.ID,
		Stage:     name,
		Model:     r.record.Model,
		PromptLen: len(text),
		Output:    reply,
		Latency:   elapsed,
		CreatedAt: time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if o.config.Recorder != nil {
		if serr := o.config.Recorder.SaveStage(ctx, rec); serr != nil {
			o.logger.Warn("Failed to record stage", zap.String("stage", name), zap.Error(serr))
		}
	}

	if err != nil {
		return "", err
	}
	o.logger.Info("Stage complete",
		zap.String("run", r.record.ID),
		zap.String("stage", name),
		zap.Duration("latency", elapsed),
		zap.Int("reply_len", len(reply)))
	return reply, nil
}

func (o *Orchestrator) fail(ctx context.Context, s *session.Session, r *run, err error) (session.Output, error) {
	s.Fail(err.Error())
	o.logger.Error("Pipeline failed", zap.String("run", r.record.ID), zap.String("kind", r.record.Kind), zap.Error(err))
	r.record.Status = string(session.StatusFailed)
	r.record.Error = err.Error()
	o.save(ctx, r)
	o.config.Metrics.CountRun(r.record.Kind, err)
	return s.Output(), err
}

func (o *Orchestrator) finish(ctx context.Context, s *session.Session, r *run, refined string) (session.Output, error) {
	r.record.Status = string(session.StatusDone)
	r.record.Refined = refined
	o.save(ctx, r)
	o.config.Metrics.CountRun(r.record.Kind, nil)
	return s.Output(), nil
}

func (o *Orchestrator) save(ctx context.Context, r *run) {
	if o.config.Recorder == nil {
		return
	}
	r.record.FinishedAt = time.Now()
	if err := o.config.Recorder.SaveRun(ctx, r.record); err != nil {
		o.logger.Warn("Failed to record run", zap.String("run", r.record.ID), zap.Error(err))
	}
}

// inspect logs problems with a finished output. It never changes the outcome.
func (o *Orchestrator) inspect(refined string, lines []session.TextLine) {
	if n := prompt.CountContentLines(refined); n != len(lines) {
		o.logger.Warn("Model changed the number of lines",
			zap.Int("output_lines", n), zap.Int("source_lines", len(lines)))
	}
	if o.config.Validator == nil {
		return
	}
	if ok, err := o.config.Validator.CheckRefined(refined, lines, targetLang); !ok {
		o.logger.Warn("Refined output may not be Vietnamese", zap.Error(err))
	}
}
