// Package validator checks that refined output is in the target language.
// Keep-original lines are never translated, so they are left out of the
// check.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/dichai/internal/detector"
	"github.com/valpere/dichai/internal/session"
)

// minValidationLength is the rune count below which detection is unreliable
// and text is accepted as is.
const minValidationLength = 20

// Validator wraps a language detector. Building one is expensive; reuse it.
type Validator struct {
	det *detector.Detector
}

// New returns a validator over d, which may be shared with other users.
func New(d *detector.Detector) *Validator {
	return &Validator{det: d}
}

// IsValid reports whether text appears to be written in lang. Short texts and
// texts whose language cannot be determined pass. On a mismatch the error
// names both codes.
func (v *Validator) IsValid(text, lang string) (bool, error) {
	if lang == "" {
		return true, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("output is empty")
	}

	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return true, nil
	}

	if !strings.EqualFold(detected, lang) {
		return false, fmt.Errorf("expected %s but detected %s", lang, detected)
	}

	return true, nil
}

// CheckRefined reports whether the translated part of refined is in lang.
func (v *Validator) CheckRefined(refined string, lines []session.TextLine, lang string) (bool, error) {
	return v.IsValid(Translated(refined, lines), lang)
}

// Translated drops the lines of refined whose trimmed text is the text of a
// keep-original line and joins the rest.
func Translated(refined string, lines []session.TextLine) string {
	keep := make(map[string]bool)
	for _, l := range lines {
		if l.IsKeepOriginal() {
			keep[strings.TrimSpace(l.Text)] = true
		}
	}
	var out []string
	for _, l := range strings.Split(refined, "\n") {
		if !keep[strings.TrimSpace(l)] {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
