package engine

import (
	"fmt"
	"time"

	"github.com/verte-zerg/mnemo/internal/catalog"
	"github.com/verte-zerg/mnemo/internal/difficulty"
	"github.com/verte-zerg/mnemo/internal/model"
)

// Phase is the state of the round state machine.
type Phase int

// Session phases. The oddone variant skips Study: content display and
// answer capture happen on the same screen.
const (
	PhaseStudy Phase = iota
	PhaseQuiz
	PhaseFeedback
	PhaseDone
	PhaseFinished
)

const (
	fatigueDrop  = 0.4
	fatigueFloor = 0.3
)

// Options configures a Session.
type Options struct {
	Game          model.Game
	RoundCap      int
	StudyPhase    bool
	SessionsToday int
	// Now is the clock used for latency capture. Defaults to time.Now.
	Now func() time.Time
}

// RoundResult summarizes a just-completed round for the Done screen.
type RoundResult struct {
	Index         int
	Correct       int
	Trials        int
	Accuracy      float64
	NewDifficulty float64
	Fatigued      bool
}

// Session owns the single active round, the difficulty tracker, and the
// running score history. All transitions are driven by discrete input
// events arriving one at a time.
type Session struct {
	cat      *catalog.Catalog
	selector Selector
	tracker  *difficulty.Tracker
	opts     Options

	phase      Phase
	paused     bool
	round      *Round
	trials     []Trial
	trialIdx   int
	lastResult RoundResult

	startedAt  time.Time
	endedEarly bool
	rounds     []model.RoundRecord

	totalCorrect    int
	totalConfusable int
	totalMiss       int
	latencySumMs    int64
	latencyCount    int64
}

// NewSession wires a session from its collaborators.
func NewSession(cat *catalog.Catalog, sel Selector, tracker *difficulty.Tracker, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RoundCap <= 0 {
		opts.RoundCap = 5
	}
	return &Session{cat: cat, selector: sel, tracker: tracker, opts: opts}
}

// Begin builds round 1 and enters the first phase.
func (s *Session) Begin() error {
	s.startedAt = s.opts.Now()
	return s.buildRound(1)
}

// Reset discards in-progress state and restarts at round 1 with the
// difficulty back at its floor.
func (s *Session) Reset() error {
	s.tracker.Reset()
	s.paused = false
	s.endedEarly = false
	s.rounds = nil
	s.totalCorrect = 0
	s.totalConfusable = 0
	s.totalMiss = 0
	s.latencySumMs = 0
	s.latencyCount = 0
	return s.Begin()
}

func (s *Session) buildRound(index int) error {
	round, err := s.selector.SelectRound(index, s.tracker.Value())
	if err != nil {
		return fmt.Errorf("round %d content: %w", index, err)
	}
	if err := checkRound(round); err != nil {
		return fmt.Errorf("round %d content: %w", index, err)
	}
	s.round = round
	s.trials = make([]Trial, len(round.Trials))
	for i, spec := range round.Trials {
		s.trials[i] = Trial{Spec: spec}
	}
	s.trialIdx = 0
	if s.opts.StudyPhase {
		s.phase = PhaseStudy
	} else {
		s.startQuiz()
	}
	return nil
}

// checkRound rejects malformed selector output rather than serving it.
func checkRound(r *Round) error {
	if len(r.Items) == 0 || len(r.Trials) == 0 {
		return fmt.Errorf("empty round")
	}
	seen := make(map[string]struct{}, len(r.Items))
	slots := make(map[int]struct{}, len(r.Items))
	for _, item := range r.Items {
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("duplicate item %q", item.ID)
		}
		seen[item.ID] = struct{}{}
		slot, ok := r.Slots[item.ID]
		if !ok {
			return fmt.Errorf("item %q has no slot", item.ID)
		}
		if slot < 0 || slot >= r.SlotCount {
			return fmt.Errorf("item %q slot %d out of range", item.ID, slot)
		}
		if _, dup := slots[slot]; dup {
			return fmt.Errorf("slot %d assigned twice", slot)
		}
		slots[slot] = struct{}{}
	}
	return nil
}

func (s *Session) startQuiz() {
	s.phase = PhaseQuiz
	s.trials[s.trialIdx].StartedAt = s.opts.Now()
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	return s.phase
}

// Paused reports whether input is currently deferred.
func (s *Session) Paused() bool {
	return s.paused
}

// SetPaused sets the session-level pause flag. While set, every input
// entry point ignores events.
func (s *Session) SetPaused(paused bool) {
	s.paused = paused
}

// Round returns the active round.
func (s *Session) Round() *Round {
	return s.round
}

// CurrentTrial returns the trial being posed or reviewed, or nil.
func (s *Session) CurrentTrial() *Trial {
	if s.phase != PhaseQuiz && s.phase != PhaseFeedback {
		return nil
	}
	if s.trialIdx >= len(s.trials) {
		return nil
	}
	return &s.trials[s.trialIdx]
}

// TrialProgress returns the 1-based trial number and the trial count.
func (s *Session) TrialProgress() (int, int) {
	return s.trialIdx + 1, len(s.trials)
}

// LastResult returns the most recent round summary, valid in PhaseDone
// and PhaseFinished.
func (s *Session) LastResult() RoundResult {
	return s.lastResult
}

// Difficulty returns the current difficulty scalar.
func (s *Session) Difficulty() float64 {
	return s.tracker.Value()
}

// RoundCap returns the configured number of rounds.
func (s *Session) RoundCap() int {
	return s.opts.RoundCap
}

// EndedEarly reports whether fatigue terminated the session.
func (s *Session) EndedEarly() bool {
	return s.endedEarly
}

// FinishStudy leaves the study phase and starts the quiz.
func (s *Session) FinishStudy() {
	if s.paused || s.phase != PhaseStudy {
		return
	}
	s.startQuiz()
}

// Select answers the current trial with the picked slot. Out-of-range
// slots and input while paused are silently ignored.
func (s *Session) Select(slot int) {
	if s.paused || s.phase != PhaseQuiz {
		return
	}
	if slot < 0 || slot >= s.round.SlotCount {
		return
	}
	trial := &s.trials[s.trialIdx]
	if trial.Answered {
		return
	}
	now := s.opts.Now()
	trial.Answered = true
	trial.PickedSlot = slot
	trial.Latency = now.Sub(trial.StartedAt)
	trial.Result = s.classify(trial.Spec, slot)
	s.phase = PhaseFeedback
}

func (s *Session) classify(spec TrialSpec, picked int) Classification {
	if picked == spec.CorrectSlot {
		return Correct
	}
	if s.opts.Game != model.GameRecall {
		return Miss
	}
	// In the confusable round every item shares the target's group, so any
	// wrong pick is a category confusion.
	if s.round.Strategy == StrategyConfusable {
		return Confusable
	}
	for id, slot := range s.round.Slots {
		if slot == picked {
			if s.cat.SharesGroup(id, spec.TargetID) {
				return Confusable
			}
			break
		}
	}
	return Miss
}

// Advance moves past the feedback or round-summary screen.
func (s *Session) Advance() error {
	if s.paused {
		return nil
	}
	switch s.phase {
	case PhaseFeedback:
		s.trialIdx++
		if s.trialIdx < len(s.trials) {
			s.startQuiz()
			return nil
		}
		s.finishRound()
		return nil
	case PhaseDone:
		if s.endedEarly || s.round.Index >= s.opts.RoundCap {
			s.phase = PhaseFinished
			return nil
		}
		return s.buildRound(s.round.Index + 1)
	default:
		return nil
	}
}

func (s *Session) finishRound() {
	correct := 0
	confusable := 0
	var latencies []time.Duration
	var latencySum int64
	for _, trial := range s.trials {
		switch trial.Result {
		case Correct:
			correct++
			s.totalCorrect++
		case Confusable:
			confusable++
			s.totalConfusable++
		default:
			s.totalMiss++
		}
		latencies = append(latencies, trial.Latency)
		latencySum += trial.Latency.Milliseconds()
		s.latencySumMs += trial.Latency.Milliseconds()
		s.latencyCount++
	}
	// The reduced denominator is intentional for undersized confusable
	// rounds: accuracy is measured over the items actually shown.
	accuracy := float64(correct) / float64(len(s.trials))

	prior := s.tracker.History()
	newDifficulty := s.tracker.Advance(accuracy, latencies, s.opts.SessionsToday)

	avgLatency := int64(0)
	if len(s.trials) > 0 {
		avgLatency = latencySum / int64(len(s.trials))
	}
	s.rounds = append(s.rounds, model.RoundRecord{
		Index:        s.round.Index,
		Strategy:     string(s.round.Strategy),
		Trials:       len(s.trials),
		Correct:      correct,
		Incorrect:    len(s.trials) - correct,
		Confusable:   confusable,
		AvgLatencyMs: avgLatency,
	})

	fatigued := isFatigued(prior, accuracy)
	if fatigued {
		s.endedEarly = true
	}
	s.lastResult = RoundResult{
		Index:         s.round.Index,
		Correct:       correct,
		Trials:        len(s.trials),
		Accuracy:      accuracy,
		NewDifficulty: newDifficulty,
		Fatigued:      fatigued,
	}
	s.phase = PhaseDone
}

// isFatigued applies the early-termination rule: the current round must sit
// strictly more than 0.4 below the mean of all prior rounds and strictly
// below the 0.3 floor.
func isFatigued(prior []float64, current float64) bool {
	if len(prior) < 1 {
		return false
	}
	var sum float64
	for _, a := range prior {
		sum += a
	}
	mean := sum / float64(len(prior))
	return current < mean-fatigueDrop && current < fatigueFloor
}

// Summary returns the session record and per-round records for persistence.
func (s *Session) Summary() (model.SessionRecord, []model.RoundRecord) {
	trials := s.totalCorrect + s.totalConfusable + s.totalMiss
	avgLatency := int64(0)
	if s.latencyCount > 0 {
		avgLatency = s.latencySumMs / s.latencyCount
	}
	rec := model.SessionRecord{
		StartedAt:    s.startedAt,
		EndedAt:      s.opts.Now(),
		Game:         s.opts.Game,
		Rounds:       len(s.rounds),
		Trials:       trials,
		Correct:      s.totalCorrect,
		Confusable:   s.totalConfusable,
		Miss:         s.totalMiss,
		AvgLatencyMs: avgLatency,
		EndedEarly:   s.endedEarly,
	}
	rounds := make([]model.RoundRecord, len(s.rounds))
	copy(rounds, s.rounds)
	return rec, rounds
}
