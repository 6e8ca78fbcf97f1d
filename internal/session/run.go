package session

// BeginRun takes the loading gate. It returns false when a run already holds it.
func (s *Session) BeginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

// EndRun releases the loading gate.
func (s *Session) EndRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) Output() Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.Status
}

func (s *Session) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output.Status = st
}

// ClearOutputs discards draft, refined text, refinement count and the last error.
func (s *Session) ClearOutputs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = Output{Status: s.output.Status}
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output.Draft = text
}

// SetRefined replaces the refined translation. When again is true the
// refinement counter is incremented.
func (s *Session) SetRefined(text string, again bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output.Refined = text
	if again {
		s.output.RefinementCount++
	}
}

// Fail clears the outputs, records msg and moves to StatusFailed.
func (s *Session) Fail(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = Output{Status: StatusFailed, Error: msg}
}
