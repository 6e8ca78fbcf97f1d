package session

import "fmt"

// KeepOriginal is the reserved expression tag that marks a line as immutable
// through every pipeline stage.
const KeepOriginal = "keep-original"

var defaultExpressions = []string{
	KeepOriginal,
	"Vui vẻ",
	"Buồn bã",
	"Tức giận",
	"Suy nghĩ",
	"Hét lớn",
	"Khóc lóc",
	"Cười nhẹ",
	"Nghiêm túc",
}

const defaultRequirements = "dịch phải đúng xưng hô, trau chuốt thật kỹ, văn phong phải hay, tránh lỗi lặp từ"

// DefaultExpressions returns a copy of the expression tags a fresh session starts with.
func DefaultExpressions() []string {
	return append([]string(nil), defaultExpressions...)
}

type Relationship struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// PronounRule describes how From addresses To, and optionally how From
// refers to itself when speaking to To.
type PronounRule struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	SelfValue string `json:"self_value,omitempty"`
}

// TextLine is one source line. Character and Expression are empty when unset.
type TextLine struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Character  string `json:"character,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// IsKeepOriginal reports whether the line must pass through unchanged.
func (l TextLine) IsKeepOriginal() bool {
	return l.Expression == KeepOriginal
}

type Status string

const (
	StatusIdle          Status = "idle"
	StatusTranslating   Status = "translating"
	StatusRefining      Status = "refining"
	StatusDone          Status = "done"
	StatusRefiningAgain Status = "refining_again"
	StatusFailed        Status = "failed"
)

// Output holds the ephemeral pipeline results of a session.
type Output struct {
	Draft           string `json:"draft,omitempty"`
	Refined         string `json:"refined,omitempty"`
	RefinementCount int    `json:"refinement_count"`
	Status          Status `json:"status"`
	Error           string `json:"error,omitempty"`
}

// Snapshot is a detached deep copy of a session's state.
type Snapshot struct {
	Characters    []string       `json:"characters"`
	Relationships []Relationship `json:"relationships"`
	Pronouns      []PronounRule  `json:"pronouns"`
	Expressions   []string       `json:"expressions"`
	Lines         []TextLine     `json:"lines"`
	Context       string         `json:"context,omitempty"`
	Genre         string         `json:"genre,omitempty"`
	Style         string         `json:"style,omitempty"`
	Requirements  string         `json:"requirements,omitempty"`
	Output        Output         `json:"output"`
}

// SourceText joins the line texts with newlines.
func (s Snapshot) SourceText() string {
	return joinLines(s.Lines)
}

type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Down, fmt.Errorf("invalid direction %q: want up or down", s)
}
