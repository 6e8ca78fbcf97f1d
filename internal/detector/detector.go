package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// Languages are the source languages the OCR service reads, plus Vietnamese.
var Languages = []lingua.Language{
	lingua.Vietnamese,
	lingua.English,
	lingua.Japanese,
	lingua.Korean,
	lingua.Chinese,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.German,
	lingua.Dutch,
	lingua.Russian,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over langs, or over Languages when none are given.
// lingua needs at least two candidates.
func New(langs ...lingua.Language) *Detector {
	if len(langs) < 2 {
		langs = Languages
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text's language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
