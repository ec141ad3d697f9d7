package catalog

import (
	"strings"
	"testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if len(c.Items()) < 20 {
		t.Fatalf("expected at least 20 items, got %d", len(c.Items()))
	}
	if len(c.Groups()) < 5 {
		t.Fatalf("expected at least 5 groups, got %d", len(c.Groups()))
	}
	if c.NumQuestions() < 10 {
		t.Fatalf("expected at least 10 questions, got %d", c.NumQuestions())
	}
}

func TestNewRejectsDuplicateItems(t *testing.T) {
	_, err := New([]Item{
		{ID: "apple", Glyph: "🍎"},
		{ID: "apple", Glyph: "🍏"},
	}, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "duplicate item") {
		t.Fatalf("expected duplicate item error, got %v", err)
	}
}

func TestNewRejectsUnknownGroupMember(t *testing.T) {
	_, err := New(
		[]Item{{ID: "apple", Glyph: "🍎"}, {ID: "pear", Glyph: "🍐"}},
		[]Group{{Name: "fruit", Items: []string{"apple", "mango"}}},
		nil,
	)
	if err == nil || !strings.Contains(err.Error(), "unknown item") {
		t.Fatalf("expected unknown item error, got %v", err)
	}
}

func TestNewRejectsOddAmongRelated(t *testing.T) {
	items := []Item{
		{ID: "apple", Glyph: "🍎"},
		{ID: "pear", Glyph: "🍐"},
		{ID: "dog", Glyph: "🐶"},
	}
	_, err := New(items, nil, []Question{{
		Difficulty: 0.5,
		Category:   "fruit",
		Related:    []string{"apple", "pear", "dog"},
		Odd:        "dog",
	}})
	if err == nil || !strings.Contains(err.Error(), "among related") {
		t.Fatalf("expected odd-collision error, got %v", err)
	}
}

func TestNewRejectsOutOfRangeDifficulty(t *testing.T) {
	items := []Item{
		{ID: "apple", Glyph: "🍎"},
		{ID: "pear", Glyph: "🍐"},
		{ID: "dog", Glyph: "🐶"},
	}
	_, err := New(items, nil, []Question{{
		Difficulty: 1.3,
		Category:   "fruit",
		Related:    []string{"apple", "pear"},
		Odd:        "dog",
	}})
	if err == nil || !strings.Contains(err.Error(), "outside [0,1]") {
		t.Fatalf("expected difficulty range error, got %v", err)
	}
}

func TestSharesGroup(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	cases := []struct {
		a, b string
		want bool
	}{
		{"apple", "banana", true},
		{"apple", "dog", false},
		{"tomato", "carrot", true}, // vegetables
		{"tomato", "pear", true},   // fruit (overlapping membership)
		{"apple", "apple", true},
		{"dog", "train", false},
	}
	for _, tc := range cases {
		if got := c.SharesGroup(tc.a, tc.b); got != tc.want {
			t.Fatalf("SharesGroup(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestQuestionsInBand(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	idx := c.QuestionsInBand(0.0, 0.2)
	if len(idx) == 0 {
		t.Fatalf("expected questions near difficulty 0")
	}
	for _, i := range idx {
		if d := c.QuestionAt(i).Difficulty; d > 0.2 {
			t.Fatalf("question %d difficulty %.2f outside band", i, d)
		}
	}
	all := c.QuestionsInBand(0.5, 1.0)
	if len(all) != c.NumQuestions() {
		t.Fatalf("full-width band should match every question")
	}
}
