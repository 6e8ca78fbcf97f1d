// Package prompt composes the instruction prompts for the three pipeline
// stages. Every builder is a pure function of its inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/valpere/dichai/internal/linecodec"
	"github.com/valpere/dichai/internal/session"
)

// KeepLine is a keep-original line and its 1-based position.
type KeepLine struct {
	Index int
	Text  string
}

// Info is the part of a session the refinement prompts need.
type Info struct {
	Pronouns      []session.PronounRule
	KeepOriginal  []KeepLine
	Relationships []string
	Genre         string
	Style         string
}

// ExtractInfo projects a session snapshot onto Info. Incomplete pronoun rules
// and blank relationships are left out.
func ExtractInfo(snap session.Snapshot) Info {
	info := Info{
		Genre: strings.TrimSpace(snap.Genre),
		Style: strings.TrimSpace(snap.Style),
	}
	for _, r := range snap.Pronouns {
		if r.From != "" && r.To != "" && r.Value != "" {
			info.Pronouns = append(info.Pronouns, r)
		}
	}
	for i, l := range snap.Lines {
		if l.IsKeepOriginal() {
			info.KeepOriginal = append(info.KeepOriginal, KeepLine{Index: i + 1, Text: l.Text})
		}
	}
	info.Relationships = relationshipTexts(snap.Relationships)
	return info
}

func relationshipTexts(rels []session.Relationship) []string {
	var out []string
	for _, r := range rels {
		if d := strings.TrimSpace(r.Description); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// FormatPronoun renders a rule the way the prompts list it:
//
//	- An: gọi Binh là "anh", xưng bản thân là "em"
func FormatPronoun(r session.PronounRule) string {
	s := fmt.Sprintf("- %s: gọi %s là \"%s\"", r.From, r.To, r.Value)
	if r.SelfValue != "" {
		s += fmt.Sprintf(", xưng bản thân là \"%s\"", r.SelfValue)
	}
	return s
}

func writePronouns(sb *strings.Builder, header string, rules []session.PronounRule) {
	sb.WriteString(header)
	sb.WriteString("\n")
	for _, r := range rules {
		if r.From == "" || r.To == "" || r.Value == "" {
			continue
		}
		sb.WriteString(FormatPronoun(r))
		sb.WriteString("\n")
	}
}

func formatExample(verb linecodec.Verb) string {
	return "'" + linecodec.EncodeTagged("X", "Y", "Z", verb) + "'"
}
