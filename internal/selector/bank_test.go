package selector

import (
	"math/rand"
	"testing"

	"github.com/verte-zerg/mnemo/internal/catalog"
)

func TestBankDrawsWithinBand(t *testing.T) {
	cat := defaultCatalog(t)
	b, err := NewBank(cat, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}
	for i := 0; i < 3; i++ {
		round, err := b.SelectRound(i+1, 0.0)
		if err != nil {
			t.Fatalf("select round: %v", err)
		}
		// At difficulty 0 the only reachable questions sit at or below 0.2.
		qd := questionDifficultyFor(t, cat, round.GroupName, round.Trials[0].TargetID)
		if qd > 0.2 {
			t.Fatalf("drew question with difficulty %.2f outside the band", qd)
		}
	}
}

func TestBankExclusionUntilBandExhaustedThenReset(t *testing.T) {
	cat := defaultCatalog(t)
	bandSize := len(cat.QuestionsInBand(0.0, 0.2))
	if bandSize < 2 {
		t.Fatalf("test needs at least 2 questions in the low band, got %d", bandSize)
	}
	b, err := NewBank(cat, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}
	seen := map[string]struct{}{}
	for i := 0; i < bandSize; i++ {
		round, err := b.SelectRound(i+1, 0.0)
		if err != nil {
			t.Fatalf("select round: %v", err)
		}
		key := round.GroupName + "/" + round.Trials[0].TargetID
		if _, dup := seen[key]; dup {
			t.Fatalf("question %q repeated before the band was exhausted", key)
		}
		seen[key] = struct{}{}
	}
	// The pool is exhausted now; the next draw must still succeed.
	if _, err := b.SelectRound(bandSize+1, 0.0); err != nil {
		t.Fatalf("draw after exhaustion: %v", err)
	}
}

func TestBankEmptyBandFallsBackToAllQuestions(t *testing.T) {
	items := []catalog.Item{
		{ID: "a", Glyph: "a"},
		{ID: "b", Glyph: "b"},
		{ID: "c", Glyph: "c"},
		{ID: "d", Glyph: "d"},
	}
	questions := []catalog.Question{{
		Difficulty: 0.9,
		Category:   "letters",
		Related:    []string{"a", "b", "c"},
		Odd:        "d",
	}}
	cat, err := catalog.New(items, nil, questions)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	b, err := NewBank(cat, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}
	// Difficulty 0 has no question within 0.2, yet a round must come back.
	round, err := b.SelectRound(1, 0.0)
	if err != nil {
		t.Fatalf("select round: %v", err)
	}
	if round.Trials[0].TargetID != "d" {
		t.Fatalf("expected the only question's odd item, got %q", round.Trials[0].TargetID)
	}
}

func TestBankOptionsWellFormed(t *testing.T) {
	cat := defaultCatalog(t)
	b, err := NewBank(cat, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("new bank: %v", err)
	}
	for i := 0; i < 30; i++ {
		round, err := b.SelectRound(i+1, float64(i%10)/10)
		if err != nil {
			t.Fatalf("select round: %v", err)
		}
		odd := round.Trials[0].TargetID
		oddCount := 0
		seen := map[string]struct{}{}
		for _, item := range round.Items {
			if _, dup := seen[item.ID]; dup {
				t.Fatalf("duplicate option %q", item.ID)
			}
			seen[item.ID] = struct{}{}
			if item.ID == odd {
				oddCount++
			}
		}
		if oddCount != 1 {
			t.Fatalf("odd item must appear exactly once, got %d", oddCount)
		}
		if got := round.Slots[odd]; got != round.Trials[0].CorrectSlot {
			t.Fatalf("odd slot %d does not match correct slot %d", got, round.Trials[0].CorrectSlot)
		}
	}
}

func TestAssembleSubstitutesCollidingOdd(t *testing.T) {
	items := []catalog.Item{
		{ID: "a", Glyph: "a"},
		{ID: "b", Glyph: "b"},
		{ID: "c", Glyph: "c"},
		{ID: "d", Glyph: "d"},
	}
	cat, err := catalog.New(items, nil, nil)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	b := &BankSelector{cat: cat, rnd: rand.New(rand.NewSource(5)), used: map[int]struct{}{}}
	options, oddIdx, err := b.assemble(catalog.Question{
		Difficulty: 0.5,
		Category:   "letters",
		Related:    []string{"a", "b", "c"},
		Odd:        "a", // collides with related
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	odd := options[oddIdx]
	if odd.ID == "a" || odd.ID == "b" || odd.ID == "c" {
		t.Fatalf("substituted odd %q still collides with related items", odd.ID)
	}
	if odd.ID != "d" {
		t.Fatalf("expected the only free item %q, got %q", "d", odd.ID)
	}
}

func TestAssembleFailsWhenCatalogExhausted(t *testing.T) {
	items := []catalog.Item{
		{ID: "a", Glyph: "a"},
		{ID: "b", Glyph: "b"},
		{ID: "c", Glyph: "c"},
	}
	cat, err := catalog.New(items, nil, nil)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	b := &BankSelector{cat: cat, rnd: rand.New(rand.NewSource(6)), used: map[int]struct{}{}}
	_, _, err = b.assemble(catalog.Question{
		Difficulty: 0.5,
		Category:   "letters",
		Related:    []string{"a", "b", "c"},
		Odd:        "a",
	})
	if err == nil {
		t.Fatalf("expected a catalog-exhausted error")
	}
}

func questionDifficultyFor(t *testing.T, cat *catalog.Catalog, category, odd string) float64 {
	t.Helper()
	for i := 0; i < cat.NumQuestions(); i++ {
		q := cat.QuestionAt(i)
		if q.Category == category && q.Odd == odd {
			return q.Difficulty
		}
	}
	t.Fatalf("no question with category %q and odd %q", category, odd)
	return 0
}
