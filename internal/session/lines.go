package session

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var lineBreakRe = regexp.MustCompile(`\r?\n`)

func joinLines(lines []TextLine) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

func (s *Session) Lines() []TextLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

// SourceText returns the line texts joined with newlines.
func (s *Session) SourceText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return joinLines(s.lines)
}

// AddTextLine appends a line and returns its id. Character and expression may
// be empty; when set they must already exist in the session.
func (s *Session) AddTextLine(text, character, expression string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := TextLine{ID: newID(), Text: text}
	if err := s.tagLocked(&line, character, expression); err != nil {
		return "", err
	}
	s.lines = append(s.lines, line)
	s.dirty = true
	return line.ID, nil
}

func (s *Session) tagLocked(line *TextLine, character, expression string) error {
	c, e := normalizeName(character), normalizeName(expression)
	if c != "" && !slices.Contains(s.characters, c) {
		return fmt.Errorf("%w: %q", ErrUnknownCharacter, c)
	}
	if e != "" && !slices.Contains(s.expressions, e) {
		return fmt.Errorf("%w: %q", ErrUnknownExpression, e)
	}
	line.Character = c
	line.Expression = e
	return nil
}

// ImportText replaces all lines with the non-blank lines of content and
// returns how many were imported.
func (s *Session) ImportText(content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	for _, raw := range lineBreakRe.Split(content, -1) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		s.lines = append(s.lines, TextLine{ID: newID(), Text: raw})
	}
	s.dirty = true
	return len(s.lines)
}

func (s *Session) RemoveTextLine(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(id)
	if idx < 0 {
		return nil
	}
	s.lines = slices.Delete(s.lines, idx, idx+1)
	s.dirty = true
	return nil
}

// ReorderTextLine swaps the line with its neighbour in the given direction.
// Moving the first line up or the last line down does nothing.
func (s *Session) ReorderTextLine(id string, dir Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.lineIndexLocked(id)
	if idx < 0 {
		return nil
	}
	target := idx + 1
	if dir == Up {
		target = idx - 1
	}
	if target < 0 || target >= len(s.lines) {
		return nil
	}
	s.lines[idx], s.lines[target] = s.lines[target], s.lines[idx]
	s.dirty = true
	return nil
}

func (s *Session) EditTextLineText(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(id)
	if idx < 0 {
		return fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	s.lines[idx].Text = text
	s.dirty = true
	return nil
}

// SetLineCharacter assigns a speaker to a line; an empty name clears it.
func (s *Session) SetLineCharacter(id, character string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(id)
	if idx < 0 {
		return fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	line := s.lines[idx]
	if err := s.tagLocked(&line, character, line.Expression); err != nil {
		return err
	}
	s.lines[idx] = line
	s.dirty = true
	return nil
}

// SetLineExpression assigns an expression tag to a line; an empty tag clears it.
func (s *Session) SetLineExpression(id, expression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(id)
	if idx < 0 {
		return fmt.Errorf("line %s: %w", id, ErrNotFound)
	}
	line := s.lines[idx]
	if err := s.tagLocked(&line, line.Character, expression); err != nil {
		return err
	}
	s.lines[idx] = line
	s.dirty = true
	return nil
}

func (s *Session) lineIndexLocked(id string) int {
	return slices.IndexFunc(s.lines, func(l TextLine) bool { return l.ID == id })
}
