package session

type pair struct {
	from string
	to   string
}

// Guard indexes the existing (from, to) pronoun pairs. It is a cache derived
// entirely from the rule list and is rebuilt from scratch after every edit.
type Guard struct {
	pairs map[pair]string
}

func NewGuard(rules []PronounRule) *Guard {
	g := &Guard{}
	g.Rebuild(rules)
	return g
}

// Rebuild discards the index and recomputes it from rules.
func (g *Guard) Rebuild(rules []PronounRule) {
	g.pairs = make(map[pair]string, len(rules))
	for _, r := range rules {
		g.pairs[pair{r.From, r.To}] = r.ID
	}
}

// ValidateNewPair checks that (from, to) may be stored. ownID is the id of the
// rule being edited, or "" for a new rule; a rule may keep its own pair.
func (g *Guard) ValidateNewPair(from, to, ownID string) error {
	if from == to {
		return &ConsistencyError{From: from, To: to, Err: ErrSelfReference}
	}
	if id, ok := g.pairs[pair{from, to}]; ok && (ownID == "" || id != ownID) {
		return &ConsistencyError{From: from, To: to, Err: ErrDuplicatePair}
	}
	return nil
}

// AvailableTargets lists the characters that from may still get a rule for.
func (g *Guard) AvailableTargets(characters []string, from, ownID string) []string {
	targets := make([]string, 0, len(characters))
	for _, c := range characters {
		if g.ValidateNewPair(from, c, ownID) == nil {
			targets = append(targets, c)
		}
	}
	return targets
}
