// Package session holds the authoring state of one translation task: the cast
// of characters, their pronoun rules, expression tags, the ordered source
// lines, and the outputs of the last pipeline run.
//
// Every mutating method sets the dirty bit. Removing something that does not
// exist is a no-op and returns nil.
package session

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

type Session struct {
	mu sync.Mutex

	characters    []string
	relationships []Relationship
	pronouns      []PronounRule
	expressions   []string
	lines         []TextLine

	context      string
	genre        string
	style        string
	requirements string

	output  Output
	loading bool
	dirty   bool

	guard *Guard
}

// New returns a session populated with the default expressions and requirements.
func New() *Session {
	s := &Session{guard: NewGuard(nil)}
	s.resetLocked()
	s.dirty = false
	return s
}

// Reset restores the defaults: no characters, relationships, pronoun rules or
// lines, the default expression list and requirements, and cleared outputs.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.characters = nil
	s.relationships = nil
	s.pronouns = nil
	s.expressions = DefaultExpressions()
	s.lines = nil
	s.context = ""
	s.genre = ""
	s.style = ""
	s.requirements = defaultRequirements
	s.output = Output{Status: StatusIdle}
	s.guard.Rebuild(nil)
	s.dirty = true
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func newID() string {
	return uuid.New().String()
}

// Dirty reports whether the session changed since the last MarkClean.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) MarkClean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// --- characters ---

func (s *Session) Characters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.characters)
}

func (s *Session) HasCharacter(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.characters, normalizeName(name))
}

func (s *Session) AddCharacter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCharacterLocked(name)
}

func (s *Session) addCharacterLocked(name string) error {
	n := normalizeName(name)
	if n == "" {
		return ErrEmptyName
	}
	if slices.Contains(s.characters, n) {
		return fmt.Errorf("%w: %s", ErrDuplicateCharacter, n)
	}
	s.characters = append(s.characters, n)
	s.dirty = true
	return nil
}

// RenameCharacter replaces oldName with newName in the cast, in every pronoun
// rule, and on every line.
func (s *Session) RenameCharacter(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, to := normalizeName(oldName), normalizeName(newName)
	idx := slices.Index(s.characters, from)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, from)
	}
	if to == "" {
		return ErrEmptyName
	}
	if from == to {
		return nil
	}
	if slices.Contains(s.characters, to) {
		return fmt.Errorf("%w: %s", ErrDuplicateCharacter, to)
	}

	s.characters[idx] = to
	for i := range s.pronouns {
		if s.pronouns[i].From == from {
			s.pronouns[i].From = to
		}
		if s.pronouns[i].To == from {
			s.pronouns[i].To = to
		}
	}
	for i := range s.lines {
		if s.lines[i].Character == from {
			s.lines[i].Character = to
		}
	}
	s.guard.Rebuild(s.pronouns)
	s.dirty = true
	return nil
}

// RemoveCharacter drops the character, deletes every pronoun rule that
// references it and clears it from the lines.
func (s *Session) RemoveCharacter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := normalizeName(name)
	idx := slices.Index(s.characters, n)
	if idx < 0 {
		return nil
	}
	s.characters = slices.Delete(s.characters, idx, idx+1)
	s.pronouns = slices.DeleteFunc(s.pronouns, func(r PronounRule) bool {
		return r.From == n || r.To == n
	})
	for i := range s.lines {
		if s.lines[i].Character == n {
			s.lines[i].Character = ""
		}
	}
	s.guard.Rebuild(s.pronouns)
	s.dirty = true
	return nil
}

// --- relationships ---

func (s *Session) Relationships() []Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.relationships)
}

// AddRelationship appends a free-text relationship and returns its id.
// Blank descriptions are kept while editing and dropped on save.
func (s *Session) AddRelationship(description string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.relationships = append(s.relationships, Relationship{ID: id, Description: strings.TrimSpace(description)})
	s.dirty = true
	return id
}

func (s *Session) EditRelationship(id, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.relationships, func(r Relationship) bool { return r.ID == id })
	if idx < 0 {
		return fmt.Errorf("relationship %s: %w", id, ErrNotFound)
	}
	s.relationships[idx].Description = strings.TrimSpace(description)
	s.dirty = true
	return nil
}

func (s *Session) RemoveRelationship(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.relationships, func(r Relationship) bool { return r.ID == id })
	if idx < 0 {
		return nil
	}
	s.relationships = slices.Delete(s.relationships, idx, idx+1)
	s.dirty = true
	return nil
}

// --- pronoun rules ---

func (s *Session) Pronouns() []PronounRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pronouns)
}

// AddPronoun stores a new rule and returns its id. The pair is checked
// against the guard before anything else about the rule.
func (s *Session) AddPronoun(from, to, value, selfValue string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := PronounRule{
		ID:        newID(),
		From:      normalizeName(from),
		To:        normalizeName(to),
		Value:     strings.TrimSpace(value),
		SelfValue: strings.TrimSpace(selfValue),
	}
	if err := s.validateRuleLocked(rule, ""); err != nil {
		return "", err
	}
	s.pronouns = append(s.pronouns, rule)
	s.guard.Rebuild(s.pronouns)
	s.dirty = true
	return rule.ID, nil
}

// EditPronoun updates a rule in place. Re-submitting the rule's own pair is allowed.
func (s *Session) EditPronoun(id, from, to, value, selfValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.pronouns, func(r PronounRule) bool { return r.ID == id })
	if idx < 0 {
		return fmt.Errorf("pronoun rule %s: %w", id, ErrNotFound)
	}
	rule := PronounRule{
		ID:        id,
		From:      normalizeName(from),
		To:        normalizeName(to),
		Value:     strings.TrimSpace(value),
		SelfValue: strings.TrimSpace(selfValue),
	}
	if err := s.validateRuleLocked(rule, id); err != nil {
		return err
	}
	s.pronouns[idx] = rule
	s.guard.Rebuild(s.pronouns)
	s.dirty = true
	return nil
}

func (s *Session) validateRuleLocked(rule PronounRule, ownID string) error {
	if err := s.guard.ValidateNewPair(rule.From, rule.To, ownID); err != nil {
		return err
	}
	for _, name := range []string{rule.From, rule.To} {
		if !slices.Contains(s.characters, name) {
			return fmt.Errorf("%w: %q", ErrUnknownCharacter, name)
		}
	}
	if rule.Value == "" {
		return ErrEmptyValue
	}
	return nil
}

func (s *Session) RemovePronoun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.pronouns, func(r PronounRule) bool { return r.ID == id })
	if idx < 0 {
		return nil
	}
	s.pronouns = slices.Delete(s.pronouns, idx, idx+1)
	s.guard.Rebuild(s.pronouns)
	s.dirty = true
	return nil
}

// ValidatePair reports whether a rule (from, to) could be stored. ownID is the
// rule being edited, or "".
func (s *Session) ValidatePair(from, to, ownID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.ValidateNewPair(normalizeName(from), normalizeName(to), ownID)
}

// AvailableTargets lists the characters a rule from `from` may point at.
func (s *Session) AvailableTargets(from, ownID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard.AvailableTargets(s.characters, normalizeName(from), ownID)
}

// --- expressions ---

func (s *Session) Expressions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.expressions)
}

func (s *Session) AddExpression(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addExpressionLocked(tag)
}

func (s *Session) addExpressionLocked(tag string) error {
	t := normalizeName(tag)
	if t == "" {
		return ErrEmptyName
	}
	if slices.Contains(s.expressions, t) {
		return fmt.Errorf("%w: %s", ErrDuplicateExpression, t)
	}
	s.expressions = append(s.expressions, t)
	s.dirty = true
	return nil
}

// RemoveExpression drops the tag and resets lines that used it to no expression.
// The keep-original tag cannot be removed.
func (s *Session) RemoveExpression(tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := normalizeName(tag)
	if t == KeepOriginal {
		return fmt.Errorf("%w: %s", ErrReservedExpression, t)
	}
	idx := slices.Index(s.expressions, t)
	if idx < 0 {
		return nil
	}
	s.expressions = slices.Delete(s.expressions, idx, idx+1)
	for i := range s.lines {
		if s.lines[i].Expression == t {
			s.lines[i].Expression = ""
		}
	}
	s.dirty = true
	return nil
}

// --- free-text settings ---

func (s *Session) SetContext(v string) {
	s.setText(&s.context, v)
}

func (s *Session) SetGenre(v string) {
	s.setText(&s.genre, v)
}

func (s *Session) SetStyle(v string) {
	s.setText(&s.style, v)
}

func (s *Session) SetRequirements(v string) {
	s.setText(&s.requirements, v)
}

func (s *Session) setText(field *string, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *field == v {
		return
	}
	*field = v
	s.dirty = true
}

// --- snapshot / restore ---

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Characters:    slices.Clone(s.characters),
		Relationships: slices.Clone(s.relationships),
		Pronouns:      slices.Clone(s.pronouns),
		Expressions:   slices.Clone(s.expressions),
		Lines:         slices.Clone(s.lines),
		Context:       s.context,
		Genre:         s.genre,
		Style:         s.style,
		Requirements:  s.requirements,
		Output:        s.output,
	}
}

// Restore clears every collection and repopulates it from snap, section by
// section. Entries that break an invariant are skipped and reported in the
// returned warnings. Outputs are cleared and the session is left clean.
func (s *Session) Restore(snap Snapshot) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	s.characters = nil
	s.relationships = nil
	s.pronouns = nil
	s.expressions = nil
	s.lines = nil
	s.guard.Rebuild(nil)

	for _, c := range snap.Characters {
		if err := s.addCharacterLocked(c); err != nil {
			warn("character %q skipped: %v", c, err)
		}
	}

	for _, r := range snap.Relationships {
		d := strings.TrimSpace(r.Description)
		if d == "" {
			continue
		}
		id := r.ID
		if id == "" {
			id = newID()
		}
		s.relationships = append(s.relationships, Relationship{ID: id, Description: d})
	}

	for _, r := range snap.Pronouns {
		rule := PronounRule{
			ID:        r.ID,
			From:      normalizeName(r.From),
			To:        normalizeName(r.To),
			Value:     strings.TrimSpace(r.Value),
			SelfValue: strings.TrimSpace(r.SelfValue),
		}
		if rule.ID == "" {
			rule.ID = newID()
		}
		if err := s.validateRuleLocked(rule, ""); err != nil {
			warn("pronoun rule %s -> %s skipped: %v", rule.From, rule.To, err)
			continue
		}
		s.pronouns = append(s.pronouns, rule)
		s.guard.Rebuild(s.pronouns)
	}

	for _, e := range snap.Expressions {
		if err := s.addExpressionLocked(e); err != nil {
			warn("expression %q skipped: %v", e, err)
		}
	}

	for _, l := range snap.Lines {
		line := TextLine{
			ID:         l.ID,
			Text:       l.Text,
			Character:  normalizeName(l.Character),
			Expression: normalizeName(l.Expression),
		}
		if line.ID == "" {
			line.ID = newID()
		}
		if line.Character != "" && !slices.Contains(s.characters, line.Character) {
			warn("line %d: unknown character %q cleared", len(s.lines)+1, line.Character)
			line.Character = ""
		}
		if line.Expression != "" && !slices.Contains(s.expressions, line.Expression) {
			warn("line %d: unknown expression %q cleared", len(s.lines)+1, line.Expression)
			line.Expression = ""
		}
		s.lines = append(s.lines, line)
	}

	s.context = snap.Context
	s.genre = snap.Genre
	s.style = snap.Style
	s.requirements = snap.Requirements
	s.output = Output{Status: StatusIdle}
	s.dirty = false

	return warnings
}
