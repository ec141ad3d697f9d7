// Package difficulty adjusts the difficulty scalar from round outcomes.
package difficulty

import "time"

const (
	goodThreshold = 0.60
	poorThreshold = 0.40
	streakTarget  = 2
	streakStep    = 0.20

	latencyCeiling = 10 * time.Second
	latencyWeight  = 0.3

	maxBias = 0.2
)

// Options configures a Tracker.
type Options struct {
	// Bias is a caregiver-tunable offset added every round, clamped to [-0.2, 0.2].
	Bias float64
	// FrequencyBonus enables the small bump for repeated same-day sessions.
	FrequencyBonus bool
}

// Tracker owns the difficulty scalar and its adjustment history. The value
// starts at 0 every session and stays within [0,1].
type Tracker struct {
	value      float64
	goodStreak int
	poorStreak int
	history    []float64
	opts       Options
}

// New returns a Tracker at the difficulty floor.
func New(opts Options) *Tracker {
	opts.Bias = clamp(opts.Bias, -maxBias, maxBias)
	return &Tracker{opts: opts}
}

// Value returns the current difficulty in [0,1].
func (t *Tracker) Value() float64 {
	return t.value
}

// History returns the recorded round accuracies, oldest first.
func (t *Tracker) History() []float64 {
	out := make([]float64, len(t.history))
	copy(out, t.history)
	return out
}

// GoodStreak returns the current count of consecutive good rounds.
func (t *Tracker) GoodStreak() int {
	return t.goodStreak
}

// PoorStreak returns the current count of consecutive poor rounds.
func (t *Tracker) PoorStreak() int {
	return t.poorStreak
}

// Reset restores the tracker to its session-start state.
func (t *Tracker) Reset() {
	t.value = 0
	t.goodStreak = 0
	t.poorStreak = 0
	t.history = nil
}

// Advance consumes one completed round and returns the difficulty for the
// next round. Two consecutive rounds at or above 0.60 raise difficulty by
// 0.20, two consecutive rounds below 0.40 lower it by 0.20; accuracies in
// between reset both streaks. Faster answers add up to 0.3, frequent play
// adds up to 0.05, and the external bias is added unconditionally. The
// result is clamped to [0,1].
func (t *Tracker) Advance(accuracy float64, latencies []time.Duration, sessionsToday int) float64 {
	accuracy = clamp(accuracy, 0, 1)
	t.history = append(t.history, accuracy)

	adjustment := 0.0
	switch {
	case accuracy >= goodThreshold:
		t.goodStreak++
		t.poorStreak = 0
		if t.goodStreak >= streakTarget {
			adjustment += streakStep
			t.goodStreak = 0
		}
	case accuracy < poorThreshold:
		t.poorStreak++
		t.goodStreak = 0
		if t.poorStreak >= streakTarget {
			adjustment -= streakStep
			t.poorStreak = 0
		}
	default:
		t.goodStreak = 0
		t.poorStreak = 0
	}

	adjustment += latencyTerm(latencies)
	if t.opts.FrequencyBonus {
		adjustment += frequencyTerm(sessionsToday)
	}
	adjustment += t.opts.Bias

	t.value = clamp(t.value+adjustment, 0, 1)
	return t.value
}

func latencyTerm(latencies []time.Duration) float64 {
	if len(latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range latencies {
		if l < 0 {
			l = 0
		}
		total += l
	}
	mean := float64(total) / float64(len(latencies))
	normalized := clamp(mean/float64(latencyCeiling), 0, 1)
	return (1 - normalized) * latencyWeight
}

func frequencyTerm(sessionsToday int) float64 {
	switch {
	case sessionsToday >= 3:
		return 0.05
	case sessionsToday >= 2:
		return 0.02
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
