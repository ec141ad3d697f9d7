// Package engine drives a session through its rounds and phases.
package engine

import (
	"time"

	"github.com/verte-zerg/mnemo/internal/catalog"
)

// Strategy names how a round's content was selected.
type Strategy string

// Selection strategies.
const (
	StrategyBaseline   Strategy = "baseline"
	StrategyConfusable Strategy = "confusable"
	StrategyNormal     Strategy = "normal"
	StrategyQuestion   Strategy = "question"
)

// Round is one round's content: a duplicate-free item set, a bijective
// item-to-slot assignment, and the trial sequence. The item set is fixed
// once the round is built.
type Round struct {
	Index     int
	Strategy  Strategy
	Items     []catalog.Item
	Slots     map[string]int
	SlotCount int
	GroupName string
	Trials    []TrialSpec
}

// TrialSpec describes one question within a round.
type TrialSpec struct {
	TargetID    string
	CorrectSlot int
	Delayed     bool
	Category    string
}

// Selector assembles the next round's content for the current difficulty.
type Selector interface {
	SelectRound(index int, difficulty float64) (*Round, error)
}

// Classification describes how an answer was scored.
type Classification int

// Answer classifications. A wrong pick lands on Confusable when the picked
// slot held an item sharing a semantic group with the target.
const (
	Correct Classification = iota
	Confusable
	Miss
)

// String returns the classification label used in feedback and storage.
func (c Classification) String() string {
	switch c {
	case Correct:
		return "correct"
	case Confusable:
		return "confusable"
	default:
		return "miss"
	}
}

// Trial is a posed question and, once answered, its outcome. A trial is
// closed by the first valid selection and never reopened.
type Trial struct {
	Spec       TrialSpec
	StartedAt  time.Time
	Answered   bool
	PickedSlot int
	Latency    time.Duration
	Result     Classification
}
