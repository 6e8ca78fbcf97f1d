package session

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCast(t *testing.T, names ...string) *Session {
	t.Helper()
	s := New()
	for _, n := range names {
		require.NoError(t, s.AddCharacter(n))
	}
	return s
}

func TestNew_Defaults(t *testing.T) {
	s := New()

	assert.False(t, s.Dirty())
	assert.Equal(t, DefaultExpressions(), s.Expressions())
	assert.Equal(t, KeepOriginal, s.Expressions()[0])
	assert.Equal(t, defaultRequirements, s.Snapshot().Requirements)
	assert.Equal(t, StatusIdle, s.Status())
}

func TestAddCharacter(t *testing.T) {
	s := New()

	require.NoError(t, s.AddCharacter("  An "))
	assert.Equal(t, []string{"An"}, s.Characters())
	assert.True(t, s.Dirty())

	assert.ErrorIs(t, s.AddCharacter("An"), ErrDuplicateCharacter)
	assert.ErrorIs(t, s.AddCharacter("   "), ErrEmptyName)
	assert.True(t, s.HasCharacter(" An"))
	assert.False(t, s.HasCharacter("Binh"))
}

func TestValidatePair(t *testing.T) {
	s := newCast(t, "An", "Binh")
	id, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.ValidatePair("An", "Binh", ""), ErrDuplicatePair)
	assert.NoError(t, s.ValidatePair("An", "Binh", id))
	assert.ErrorIs(t, s.ValidatePair("An", "An", ""), ErrSelfReference)
	assert.NoError(t, s.ValidatePair("Binh", "An", ""))
}

func TestAddCharacter_NFC(t *testing.T) {
	s := New()

	// composed vs. decomposed (i + combining grave)
	require.NoError(t, s.AddCharacter("B\u00ecnh"))
	assert.ErrorIs(t, s.AddCharacter("Bi\u0300nh"), ErrDuplicateCharacter)
}

func TestAddPronoun_Consistency(t *testing.T) {
	s := newCast(t, "An", "Binh")

	_, err := s.AddPronoun("An", "An", "tôi", "")
	assert.ErrorIs(t, err, ErrSelfReference)
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "An", ce.From)

	id, err := s.AddPronoun("An", "Binh", "anh", "em")
	require.NoError(t, err)

	_, err = s.AddPronoun("An", "Binh", "cậu", "")
	assert.ErrorIs(t, err, ErrDuplicatePair)

	// The reverse direction is a different pair.
	_, err = s.AddPronoun("Binh", "An", "em", "anh")
	require.NoError(t, err)

	require.NoError(t, s.RemovePronoun(id))
	_, err = s.AddPronoun("An", "Binh", "anh", "")
	assert.NoError(t, err)
}

func TestAddPronoun_Validation(t *testing.T) {
	s := newCast(t, "An", "Binh")

	_, err := s.AddPronoun("An", "Chi", "chị", "")
	assert.ErrorIs(t, err, ErrUnknownCharacter)

	_, err = s.AddPronoun("An", "Binh", "  ", "")
	assert.ErrorIs(t, err, ErrEmptyValue)
}

func TestEditPronoun_OwnPair(t *testing.T) {
	s := newCast(t, "An", "Binh", "Chi")

	id, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)
	other, err := s.AddPronoun("An", "Chi", "chị", "")
	require.NoError(t, err)

	require.NoError(t, s.EditPronoun(id, "An", "Binh", "cậu", "tớ"))
	rules := s.Pronouns()
	assert.Equal(t, "cậu", rules[0].Value)
	assert.Equal(t, "tớ", rules[0].SelfValue)

	err = s.EditPronoun(other, "An", "Binh", "bạn", "")
	assert.ErrorIs(t, err, ErrDuplicatePair)

	assert.ErrorIs(t, s.EditPronoun("missing", "An", "Binh", "x", ""), ErrNotFound)
}

func TestAvailableTargets(t *testing.T) {
	s := newCast(t, "An", "Binh", "Chi")

	id, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Chi"}, s.AvailableTargets("An", ""))
	assert.Equal(t, []string{"Binh", "Chi"}, s.AvailableTargets("An", id))
	assert.Equal(t, []string{"An", "Chi"}, s.AvailableTargets("Binh", ""))
}

func TestRenameCharacter(t *testing.T) {
	s := newCast(t, "An", "Binh")
	_, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)
	lineID, err := s.AddTextLine("Xin chào", "An", "")
	require.NoError(t, err)

	require.NoError(t, s.RenameCharacter("An", "Anh"))

	assert.Equal(t, []string{"Anh", "Binh"}, s.Characters())
	assert.Equal(t, "Anh", s.Pronouns()[0].From)
	assert.Equal(t, "Anh", s.Lines()[0].Character)
	assert.Equal(t, lineID, s.Lines()[0].ID)

	assert.ErrorIs(t, s.RenameCharacter("Anh", "Binh"), ErrDuplicateCharacter)
	assert.ErrorIs(t, s.RenameCharacter("Nobody", "X"), ErrUnknownCharacter)

	// the guard follows the rename
	_, err = s.AddPronoun("Anh", "Binh", "x", "")
	assert.ErrorIs(t, err, ErrDuplicatePair)
	_, err = s.AddPronoun("An", "Binh", "x", "")
	assert.ErrorIs(t, err, ErrUnknownCharacter)
}

func TestRemoveCharacter_Cascades(t *testing.T) {
	s := newCast(t, "An", "Binh", "Chi")
	_, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)
	_, err = s.AddPronoun("Chi", "An", "em", "")
	require.NoError(t, err)
	keep, err := s.AddPronoun("Binh", "Chi", "chị", "")
	require.NoError(t, err)
	_, err = s.AddTextLine("one", "An", "Vui vẻ")
	require.NoError(t, err)

	require.NoError(t, s.RemoveCharacter("An"))

	rules := s.Pronouns()
	require.Len(t, rules, 1)
	assert.Equal(t, keep, rules[0].ID)
	line := s.Lines()[0]
	assert.Empty(t, line.Character)
	assert.Equal(t, "Vui vẻ", line.Expression)

	// no-op on a name that is gone
	assert.NoError(t, s.RemoveCharacter("An"))
}

func TestExpressions(t *testing.T) {
	s := New()

	require.NoError(t, s.AddExpression("Thì thầm"))
	assert.ErrorIs(t, s.AddExpression("Thì thầm"), ErrDuplicateExpression)
	assert.ErrorIs(t, s.RemoveExpression(KeepOriginal), ErrReservedExpression)

	id, err := s.AddTextLine("psst", "", "Thì thầm")
	require.NoError(t, err)
	require.NoError(t, s.RemoveExpression("Thì thầm"))
	assert.NotContains(t, s.Expressions(), "Thì thầm")
	assert.Empty(t, s.Lines()[0].Expression)
	assert.Equal(t, id, s.Lines()[0].ID)

	assert.NoError(t, s.RemoveExpression("never-existed"))
}

func TestRelationships(t *testing.T) {
	s := New()

	id := s.AddRelationship("An là anh trai của Binh")
	require.NoError(t, s.EditRelationship(id, "An là bạn của Binh"))
	assert.Equal(t, "An là bạn của Binh", s.Relationships()[0].Description)
	assert.ErrorIs(t, s.EditRelationship("nope", "x"), ErrNotFound)

	require.NoError(t, s.RemoveRelationship(id))
	assert.Empty(t, s.Relationships())
	assert.NoError(t, s.RemoveRelationship(id))
}

func TestTextLines(t *testing.T) {
	s := newCast(t, "An")

	a, err := s.AddTextLine("a", "", "")
	require.NoError(t, err)
	b, err := s.AddTextLine("b", "An", KeepOriginal)
	require.NoError(t, err)
	c, err := s.AddTextLine("c", "", "")
	require.NoError(t, err)

	_, err = s.AddTextLine("d", "Ghost", "")
	assert.ErrorIs(t, err, ErrUnknownCharacter)
	_, err = s.AddTextLine("d", "", "Ghostly")
	assert.ErrorIs(t, err, ErrUnknownExpression)

	order := func() []string {
		var ids []string
		for _, l := range s.Lines() {
			ids = append(ids, l.ID)
		}
		return ids
	}

	require.NoError(t, s.ReorderTextLine(a, Up))
	assert.Equal(t, []string{a, b, c}, order())
	require.NoError(t, s.ReorderTextLine(c, Down))
	assert.Equal(t, []string{a, b, c}, order())
	require.NoError(t, s.ReorderTextLine(a, Down))
	assert.Equal(t, []string{b, a, c}, order())
	require.NoError(t, s.ReorderTextLine(c, Up))
	assert.Equal(t, []string{b, c, a}, order())

	require.NoError(t, s.EditTextLineText(c, "C"))
	assert.Equal(t, "b\nC\na", s.SourceText())
	assert.ErrorIs(t, s.EditTextLineText("nope", "x"), ErrNotFound)

	require.NoError(t, s.SetLineCharacter(a, "An"))
	require.NoError(t, s.SetLineExpression(a, "Vui vẻ"))
	require.NoError(t, s.SetLineCharacter(b, ""))
	lines := s.Lines()
	assert.Equal(t, "An", lines[2].Character)
	assert.Equal(t, "Vui vẻ", lines[2].Expression)
	assert.Empty(t, lines[0].Character)
	assert.True(t, lines[0].IsKeepOriginal())

	require.NoError(t, s.RemoveTextLine(b))
	assert.Equal(t, []string{c, a}, order())
	assert.NoError(t, s.RemoveTextLine(b))
}

func TestImportText(t *testing.T) {
	s := New()
	_, err := s.AddTextLine("old", "", "")
	require.NoError(t, err)

	n := s.ImportText("first\r\n\r\nsecond\n   \nthird")

	assert.Equal(t, 3, n)
	assert.Equal(t, "first\nsecond\nthird", s.SourceText())
}

func TestReset(t *testing.T) {
	s := newCast(t, "An", "Binh")
	_, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)
	require.NoError(t, s.RemoveExpression("Vui vẻ"))
	s.SetGenre("tiên hiệp")
	s.MarkClean()

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Characters)
	assert.Empty(t, snap.Pronouns)
	assert.Empty(t, snap.Genre)
	assert.Equal(t, DefaultExpressions(), snap.Expressions)
	assert.True(t, s.Dirty())

	// the guard was cleared too
	require.NoError(t, s.AddCharacter("An"))
	require.NoError(t, s.AddCharacter("Binh"))
	_, err = s.AddPronoun("An", "Binh", "anh", "")
	assert.NoError(t, err)
}

func TestSetText_DirtyOnlyOnChange(t *testing.T) {
	s := New()

	s.SetStyle("")
	assert.False(t, s.Dirty())
	s.SetStyle("cổ trang")
	assert.True(t, s.Dirty())
}

func TestSnapshotIsDetached(t *testing.T) {
	s := newCast(t, "An")
	snap := s.Snapshot()
	snap.Characters[0] = "Mutated"

	assert.Equal(t, []string{"An"}, s.Characters())
}

func TestRestore_SkipsInvalid(t *testing.T) {
	s := newCast(t, "Old")

	warnings := s.Restore(Snapshot{
		Characters: []string{"An", "Binh", "An", ""},
		Relationships: []Relationship{
			{Description: "bạn thân"},
			{Description: "   "},
		},
		Pronouns: []PronounRule{
			{From: "An", To: "Binh", Value: "anh"},
			{From: "An", To: "Binh", Value: "cậu"},
			{From: "An", To: "An", Value: "tôi"},
			{From: "An", To: "Ghost", Value: "x"},
		},
		Expressions: []string{KeepOriginal, "Vui vẻ"},
		Lines: []TextLine{
			{Text: "one", Character: "An", Expression: "Vui vẻ"},
			{Text: "two", Character: "Ghost", Expression: "Sad"},
		},
		Requirements: "r",
	})

	assert.Len(t, warnings, 7)
	snap := s.Snapshot()
	assert.Equal(t, []string{"An", "Binh"}, snap.Characters)
	require.Len(t, snap.Relationships, 1)
	assert.NotEmpty(t, snap.Relationships[0].ID)
	require.Len(t, snap.Pronouns, 1)
	assert.Equal(t, "anh", snap.Pronouns[0].Value)
	require.Len(t, snap.Lines, 2)
	assert.Empty(t, snap.Lines[1].Character)
	assert.Empty(t, snap.Lines[1].Expression)
	assert.Equal(t, "r", snap.Requirements)
	assert.False(t, s.Dirty())
}

func TestRunGate(t *testing.T) {
	s := New()

	require.True(t, s.BeginRun())
	assert.False(t, s.BeginRun())
	assert.True(t, s.Loading())
	s.EndRun()
	assert.True(t, s.BeginRun())
	s.EndRun()

	s.SetDraft("d")
	s.SetRefined("r", false)
	s.SetRefined("r2", true)
	assert.Equal(t, 1, s.Output().RefinementCount)

	s.Fail("boom")
	out := s.Output()
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, out.Draft)
	assert.Empty(t, out.Refined)
	assert.Equal(t, "boom", out.Error)
}

// Random edits never leave two rules with the same pair or a self reference.
func TestPronounInvariant_RandomEdits(t *testing.T) {
	names := []string{"An", "Binh", "Chi", "Dung"}
	s := newCast(t, names...)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		from := names[rng.Intn(len(names))]
		to := names[rng.Intn(len(names))]
		switch rng.Intn(4) {
		case 0, 1:
			_, _ = s.AddPronoun(from, to, "v", "")
		case 2:
			rules := s.Pronouns()
			if len(rules) > 0 {
				r := rules[rng.Intn(len(rules))]
				_ = s.EditPronoun(r.ID, from, to, "w", "")
			}
		case 3:
			rules := s.Pronouns()
			if len(rules) > 0 {
				_ = s.RemovePronoun(rules[rng.Intn(len(rules))].ID)
			}
		}

		seen := map[[2]string]bool{}
		for _, r := range s.Pronouns() {
			require.NotEqual(t, r.From, r.To)
			key := [2]string{r.From, r.To}
			require.False(t, seen[key], "duplicate pair %v", key)
			seen[key] = true
		}
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	require.NoError(t, err)
	assert.Equal(t, Up, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
