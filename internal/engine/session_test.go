package engine

import (
	"testing"
	"time"

	"github.com/verte-zerg/mnemo/internal/catalog"
	"github.com/verte-zerg/mnemo/internal/difficulty"
	"github.com/verte-zerg/mnemo/internal/model"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// stubSelector serves the same fixed round layout for every index.
type stubSelector struct {
	build func(index int) *Round
}

func (s *stubSelector) SelectRound(index int, difficulty float64) (*Round, error) {
	return s.build(index), nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return cat
}

// fruitRound lays apple, banana, and dog on a 4-slot board and quizzes
// each in order.
func fruitRound(cat *catalog.Catalog, index int, strategy Strategy) *Round {
	ids := []string{"apple", "banana", "dog"}
	items := make([]catalog.Item, 0, len(ids))
	slots := make(map[string]int, len(ids))
	trials := make([]TrialSpec, 0, len(ids))
	for i, id := range ids {
		item, _ := cat.ItemByID(id)
		items = append(items, item)
		slots[id] = i
		trials = append(trials, TrialSpec{TargetID: id, CorrectSlot: i})
	}
	return &Round{
		Index:     index,
		Strategy:  strategy,
		Items:     items,
		Slots:     slots,
		SlotCount: 4,
		Trials:    trials,
	}
}

func newTestSession(t *testing.T, cat *catalog.Catalog, strategy Strategy, opts Options) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(0, 0)}
	opts.Now = clock.now
	sel := &stubSelector{build: func(index int) *Round {
		return fruitRound(cat, index, strategy)
	}}
	s := NewSession(cat, sel, difficulty.New(difficulty.Options{}), opts)
	if err := s.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	return s, clock
}

func TestStudyQuizFeedbackFlow(t *testing.T) {
	cat := testCatalog(t)
	s, clock := newTestSession(t, cat, StrategyNormal, Options{
		Game:       model.GameRecall,
		RoundCap:   2,
		StudyPhase: true,
	})
	if s.Phase() != PhaseStudy {
		t.Fatalf("expected study phase, got %v", s.Phase())
	}
	s.FinishStudy()
	if s.Phase() != PhaseQuiz {
		t.Fatalf("expected quiz phase, got %v", s.Phase())
	}

	clock.advance(2 * time.Second)
	s.Select(0) // apple at slot 0: correct
	if s.Phase() != PhaseFeedback {
		t.Fatalf("expected feedback phase, got %v", s.Phase())
	}
	trial := s.CurrentTrial()
	if trial == nil || !trial.Answered {
		t.Fatalf("expected the trial to be closed")
	}
	if trial.Result != Correct {
		t.Fatalf("expected correct, got %v", trial.Result)
	}
	if trial.Latency != 2*time.Second {
		t.Fatalf("expected 2s latency, got %v", trial.Latency)
	}

	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if s.Phase() != PhaseQuiz {
		t.Fatalf("expected quiz for trial 2, got %v", s.Phase())
	}
	n, total := s.TrialProgress()
	if n != 2 || total != 3 {
		t.Fatalf("expected trial 2/3, got %d/%d", n, total)
	}
}

func TestRoundCompletionAndResult(t *testing.T) {
	cat := testCatalog(t)
	s, _ := newTestSession(t, cat, StrategyNormal, Options{
		Game:     model.GameRecall,
		RoundCap: 2,
	})

	// No study phase configured: the quiz starts immediately.
	if s.Phase() != PhaseQuiz {
		t.Fatalf("expected quiz phase, got %v", s.Phase())
	}
	answers := []int{0, 1, 0} // third answer wrong (dog is at slot 2)
	for _, slot := range answers {
		s.Select(slot)
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if s.Phase() != PhaseDone {
		t.Fatalf("expected done phase, got %v", s.Phase())
	}
	result := s.LastResult()
	if result.Correct != 2 || result.Trials != 3 {
		t.Fatalf("expected 2/3 correct, got %d/%d", result.Correct, result.Trials)
	}
	if result.Accuracy < 0.66 || result.Accuracy > 0.67 {
		t.Fatalf("unexpected accuracy %v", result.Accuracy)
	}

	if err := s.Advance(); err != nil {
		t.Fatalf("advance to round 2: %v", err)
	}
	if s.Round().Index != 2 {
		t.Fatalf("expected round 2, got %d", s.Round().Index)
	}
}

func TestSessionFinishesAtRoundCap(t *testing.T) {
	cat := testCatalog(t)
	s, _ := newTestSession(t, cat, StrategyNormal, Options{
		Game:     model.GameRecall,
		RoundCap: 2,
	})
	for round := 0; round < 2; round++ {
		for trial := 0; trial < 3; trial++ {
			s.Select(trial)
			if err := s.Advance(); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
		if err := s.Advance(); err != nil {
			t.Fatalf("advance past done: %v", err)
		}
	}
	if s.Phase() != PhaseFinished {
		t.Fatalf("expected finished after the round cap, got %v", s.Phase())
	}
	rec, rounds := s.Summary()
	if rec.Rounds != 2 || len(rounds) != 2 {
		t.Fatalf("expected 2 recorded rounds, got %d and %d", rec.Rounds, len(rounds))
	}
	if rec.Correct != 6 || rec.Trials != 6 {
		t.Fatalf("expected 6/6 correct, got %d/%d", rec.Correct, rec.Trials)
	}
	if rec.EndedEarly {
		t.Fatalf("cap termination is not an early end")
	}
}

func TestPauseGuardsAllInputs(t *testing.T) {
	cat := testCatalog(t)
	s, _ := newTestSession(t, cat, StrategyNormal, Options{
		Game:       model.GameRecall,
		RoundCap:   2,
		StudyPhase: true,
	})
	s.SetPaused(true)
	s.FinishStudy()
	if s.Phase() != PhaseStudy {
		t.Fatalf("paused FinishStudy must be ignored")
	}
	s.SetPaused(false)
	s.FinishStudy()
	s.SetPaused(true)
	s.Select(0)
	if s.Phase() != PhaseQuiz {
		t.Fatalf("paused Select must be ignored")
	}
	s.SetPaused(false)
	s.Select(0)
	s.SetPaused(true)
	if err := s.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if s.Phase() != PhaseFeedback {
		t.Fatalf("paused Advance must be ignored")
	}
}

func TestOutOfRangeSelectionIgnored(t *testing.T) {
	cat := testCatalog(t)
	s, _ := newTestSession(t, cat, StrategyNormal, Options{
		Game:     model.GameRecall,
		RoundCap: 2,
	})
	s.Select(-1)
	s.Select(4) // board has 4 slots: 0..3
	if s.Phase() != PhaseQuiz {
		t.Fatalf("out-of-range selections must be ignored")
	}
	s.Select(3) // empty but valid slot: a (wrong) answer
	if s.Phase() != PhaseFeedback {
		t.Fatalf("valid empty slot must count as an answer")
	}
}

func TestClassification(t *testing.T) {
	cat := testCatalog(t)
	cases := []struct {
		name     string
		game     model.Game
		strategy Strategy
		pick     int
		want     Classification
	}{
		{"correct", model.GameRecall, StrategyNormal, 0, Correct},
		{"confusable pick", model.GameRecall, StrategyNormal, 1, Confusable}, // banana shares fruit with apple
		{"unrelated pick", model.GameRecall, StrategyNormal, 2, Miss},        // dog
		{"empty slot", model.GameRecall, StrategyNormal, 3, Miss},
		{"confusable round wrong pick", model.GameRecall, StrategyConfusable, 3, Confusable},
		{"oddone wrong pick", model.GameOddOne, StrategyQuestion, 1, Miss},
	}
	for _, tc := range cases {
		s, _ := newTestSession(t, cat, tc.strategy, Options{
			Game:     tc.game,
			RoundCap: 2,
		})
		s.Select(tc.pick) // first trial targets apple at slot 0
		trial := s.CurrentTrial()
		if trial == nil {
			t.Fatalf("%s: expected an answered trial", tc.name)
		}
		if trial.Result != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, trial.Result, tc.want)
		}
	}
}

func TestFatigueEndsSessionEarly(t *testing.T) {
	cat := testCatalog(t)
	s, _ := newTestSession(t, cat, StrategyNormal, Options{
		Game:     model.GameRecall,
		RoundCap: 5,
	})
	// Round 1: all correct.
	for _, slot := range []int{0, 1, 2} {
		s.Select(slot)
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance to round 2: %v", err)
	}
	// Round 2: all wrong (0 < 1.0-0.4 and 0 < 0.3).
	for range []int{0, 1, 2} {
		s.Select(3)
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if !s.LastResult().Fatigued {
		t.Fatalf("expected fatigue after the accuracy collapse")
	}
	if err := s.Advance(); err != nil {
		t.Fatalf("advance past done: %v", err)
	}
	if s.Phase() != PhaseFinished {
		t.Fatalf("expected early finish, got %v", s.Phase())
	}
	rec, _ := s.Summary()
	if !rec.EndedEarly {
		t.Fatalf("summary must record the early end")
	}
}

func TestFatigueBoundariesAreStrict(t *testing.T) {
	cases := []struct {
		name    string
		prior   []float64
		current float64
		want    bool
	}{
		{"no history", nil, 0.0, false},
		{"collapse", []float64{1.0}, 0.1, true},
		{"drop exactly 0.4", []float64{0.65}, 0.25, false},
		{"floor exactly 0.3", []float64{0.9}, 0.3, false},
		{"below floor but small drop", []float64{0.5}, 0.2, false},
		{"big drop but above floor", []float64{0.9}, 0.4, false},
		{"both strict", []float64{0.8, 1.0}, 0.2, true},
	}
	for _, tc := range cases {
		if got := isFatigued(tc.prior, tc.current); got != tc.want {
			t.Fatalf("%s: isFatigued(%v, %v) = %v, want %v", tc.name, tc.prior, tc.current, got, tc.want)
		}
	}
}

func TestBeginRejectsMalformedRound(t *testing.T) {
	cat := testCatalog(t)
	apple, _ := cat.ItemByID("apple")
	bad := &Round{
		Index:     1,
		Strategy:  StrategyNormal,
		Items:     []catalog.Item{apple, apple},
		Slots:     map[string]int{"apple": 0},
		SlotCount: 4,
		Trials:    []TrialSpec{{TargetID: "apple", CorrectSlot: 0}},
	}
	sel := &stubSelector{build: func(int) *Round { return bad }}
	s := NewSession(cat, sel, difficulty.New(difficulty.Options{}), Options{Game: model.GameRecall})
	if err := s.Begin(); err == nil {
		t.Fatalf("expected duplicate-item round to be rejected")
	}
}

func TestResetRestartsAtFloor(t *testing.T) {
	cat := testCatalog(t)
	s, _ := newTestSession(t, cat, StrategyNormal, Options{
		Game:       model.GameRecall,
		RoundCap:   5,
		StudyPhase: true,
	})
	s.FinishStudy()
	for _, slot := range []int{0, 1, 2} {
		s.Select(slot)
		if err := s.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Phase() != PhaseStudy || s.Round().Index != 1 {
		t.Fatalf("expected a fresh round 1 study phase")
	}
	if s.Difficulty() != 0 {
		t.Fatalf("expected difficulty floor after reset, got %v", s.Difficulty())
	}
	rec, _ := s.Summary()
	if rec.Trials != 0 {
		t.Fatalf("expected cleared totals, got %d trials", rec.Trials)
	}
}
