// Package persistence converts a session and its provider settings to and
// from the portable JSON document used for save, load, export and import.
//
// Decoding is two-phase. The whole document is parsed before the session is
// touched, so a malformed document fails with a PersistenceError and leaves
// the session as it was. Once parsing succeeds each section is decoded on its
// own: a missing or ill-typed section leaves that part of the session empty
// and adds a warning instead of failing the load.
package persistence

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/dichai/internal/provider"
	"github.com/valpere/dichai/internal/session"
)

// none marks an unset character or expression in a text table row.
const none = "none"

// PersistenceError means a document could not be parsed at all.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("invalid session document: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Settings is the part of a document that lives outside the session.
// Selection is zero when the document stores none.
type Settings struct {
	APIKey    string
	Selection provider.Selection
}

// WithSelection returns st with sel filled in when st has no selection.
func (st Settings) WithSelection(sel provider.Selection) Settings {
	if st.Selection.Model == "" && st.Selection.Provider == "" {
		st.Selection = sel
	}
	return st
}

type Pronoun struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	SelfValue string `json:"selfValue"`
}

type CustomModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Row struct {
	Text       string `json:"text"`
	Character  string `json:"character"`
	Expression string `json:"expression"`
}

// Document is the on-disk form.
type Document struct {
	APIKey           string        `json:"apiKey"`
	Characters       []string      `json:"characters"`
	Relationships    []string      `json:"relationships"`
	Pronouns         []Pronoun     `json:"pronouns"`
	Expressions      []string      `json:"expressions"`
	Context          string        `json:"context"`
	Genre            string        `json:"genre"`
	Style            string        `json:"style"`
	Requirements     string        `json:"requirements"`
	SelectedModel    string        `json:"selectedModel"`
	SelectedProvider string        `json:"selectedProvider"`
	CustomModels     []CustomModel `json:"customModels"`
	TextTable        []Row         `json:"textTable"`
}

// Encode projects a session, the catalog's custom models and settings onto a
// Document. Blank relationships are left out.
func Encode(snap session.Snapshot, catalog *provider.Catalog, settings Settings) Document {
	doc := Document{
		APIKey:           settings.APIKey,
		Characters:       append([]string{}, snap.Characters...),
		Relationships:    []string{},
		Pronouns:         []Pronoun{},
		Expressions:      append([]string{}, snap.Expressions...),
		Context:          snap.Context,
		Genre:            snap.Genre,
		Style:            snap.Style,
		Requirements:     snap.Requirements,
		SelectedModel:    settings.Selection.Model,
		SelectedProvider: settings.Selection.Provider,
		CustomModels:     []CustomModel{},
		TextTable:        []Row{},
	}

	for _, r := range snap.Relationships {
		if d := strings.TrimSpace(r.Description); d != "" {
			doc.Relationships = append(doc.Relationships, d)
		}
	}
	for _, p := range snap.Pronouns {
		doc.Pronouns = append(doc.Pronouns, Pronoun{From: p.From, To: p.To, Value: p.Value, SelfValue: p.SelfValue})
	}
	if catalog != nil {
		for _, m := range catalog.CustomModels() {
			doc.CustomModels = append(doc.CustomModels, CustomModel{ID: m.ID, Name: m.Name, Description: m.Description})
		}
	}
	for _, l := range snap.Lines {
		doc.TextTable = append(doc.TextTable, Row{Text: l.Text, Character: orNone(l.Character), Expression: orNone(l.Expression)})
	}
	return doc
}

// Serialize renders the session as an indented JSON document.
func Serialize(s *session.Session, catalog *provider.Catalog, settings Settings) ([]byte, error) {
	data, err := json.MarshalIndent(Encode(s.Snapshot(), catalog, settings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

// Deserialize replaces the contents of s with the document in data. Custom
// models are loaded into catalog when the document carries the section. The
// returned warnings describe every entry that was skipped or repaired.
func Deserialize(data []byte, s *session.Session, catalog *provider.Catalog) (Settings, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, nil, &PersistenceError{Err: err}
	}
	if raw == nil {
		return Settings{}, nil, &PersistenceError{Err: fmt.Errorf("document is not a JSON object")}
	}

	d := decoder{raw: raw}
	var snap session.Snapshot

	d.field("characters", &snap.Characters)

	var relationships []string
	d.field("relationships", &relationships)
	for _, r := range relationships {
		snap.Relationships = append(snap.Relationships, session.Relationship{Description: r})
	}

	var pronouns []Pronoun
	d.field("pronouns", &pronouns)
	for _, p := range pronouns {
		snap.Pronouns = append(snap.Pronouns, session.PronounRule{From: p.From, To: p.To, Value: p.Value, SelfValue: p.SelfValue})
	}

	d.field("expressions", &snap.Expressions)
	d.field("context", &snap.Context)
	d.field("genre", &snap.Genre)
	d.field("style", &snap.Style)
	d.field("requirements", &snap.Requirements)

	var rows []Row
	if d.field("textTable", &rows) {
		for _, r := range rows {
			snap.Lines = append(snap.Lines, session.TextLine{Text: r.Text, Character: fromNone(r.Character), Expression: fromNone(r.Expression)})
		}
	} else {
		// older documents carry only the raw text
		var text string
		if d.field("sourceText", &text) && strings.TrimSpace(text) != "" {
			for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
				if strings.TrimSpace(line) != "" {
					snap.Lines = append(snap.Lines, session.TextLine{Text: line})
				}
			}
		}
	}

	var settings Settings
	d.field("apiKey", &settings.APIKey)

	var custom []CustomModel
	hasCustom := d.field("customModels", &custom)

	var selModel, selProvider string
	d.field("selectedModel", &selModel)
	d.field("selectedProvider", &selProvider)

	warnings := append(d.warnings, s.Restore(snap)...)

	if catalog == nil {
		catalog = provider.NewCatalog()
	}
	if hasCustom {
		models := make([]provider.Model, 0, len(custom))
		for _, m := range custom {
			models = append(models, provider.Model{ID: m.ID, Name: m.Name, Description: m.Description, Provider: provider.OpenRouter})
		}
		catalog.ReplaceCustomModels(models)
	}

	sel, warn := resolveSelection(catalog, selProvider, selModel)
	if warn != "" {
		warnings = append(warnings, warn)
	}
	settings.Selection = sel
	return settings, warnings, nil
}

// resolveSelection turns the stored provider/model pair into a selection the
// catalog can serve. Nothing stored gives the zero selection.
func resolveSelection(catalog *provider.Catalog, providerID, model string) (provider.Selection, string) {
	if model == "" && providerID == "" {
		return provider.Selection{}, ""
	}
	if sel, err := catalog.Select(model); err == nil {
		return sel, ""
	}
	if sel, err := catalog.SwitchProvider(provider.Selection{Model: model}, providerID); err == nil {
		if model == "" {
			return sel, ""
		}
		return sel, fmt.Sprintf("model %q is not available, using %q", model, sel.Model)
	}
	def := provider.DefaultSelection()
	return def, fmt.Sprintf("provider %q is not supported, using %q", providerID, def.Provider)
}

type decoder struct {
	raw      map[string]json.RawMessage
	warnings []string
}

// field decodes key into dst. It reports whether the key was present and
// decoded; a present but ill-typed value adds a warning.
func (d *decoder) field(key string, dst any) bool {
	msg, ok := d.raw[key]
	if !ok || string(msg) == "null" {
		return false
	}
	if err := json.Unmarshal(msg, dst); err != nil {
		d.warnings = append(d.warnings, fmt.Sprintf("section %q ignored: %v", key, err))
		return false
	}
	return true
}

func orNone(v string) string {
	if v == "" {
		return none
	}
	return v
}

func fromNone(v string) string {
	if v == none {
		return ""
	}
	return v
}
