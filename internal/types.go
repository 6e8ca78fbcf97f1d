package internal

import "time"

// RunRecord describes one pipeline run (a full translate+refine, or a
// refine-again pass).
type RunRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	SourceText string    `json:"source_text"`
	Status     string    `json:"status"`
	Refined    string    `json:"refined,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// StageRecord is the outcome of a single model call within a run.
type StageRecord struct {
	RunID     string        `json:"run_id"`
	Stage     string        `json:"stage"`
	Model     string        `json:"model"`
	PromptLen int           `json:"prompt_len"`
	Output    string        `json:"output,omitempty"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}
