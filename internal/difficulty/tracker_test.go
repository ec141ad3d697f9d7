package difficulty

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGoodStreakRaisesByStep(t *testing.T) {
	tr := New(Options{})
	tr.Advance(0.8, nil, 0)
	if tr.GoodStreak() != 1 {
		t.Fatalf("expected good streak 1, got %d", tr.GoodStreak())
	}
	got := tr.Advance(0.6, nil, 0)
	if !almostEqual(got, 0.20) {
		t.Fatalf("expected difficulty 0.20 after two good rounds, got %v", got)
	}
	if tr.GoodStreak() != 0 {
		t.Fatalf("expected good streak reset, got %d", tr.GoodStreak())
	}
}

func TestPoorStreakLowersByStep(t *testing.T) {
	tr := New(Options{})
	tr.Advance(0.9, nil, 0)
	tr.Advance(0.9, nil, 0) // 0.20
	tr.Advance(0.1, nil, 0)
	if tr.PoorStreak() != 1 {
		t.Fatalf("expected poor streak 1, got %d", tr.PoorStreak())
	}
	got := tr.Advance(0.39, nil, 0)
	if !almostEqual(got, 0.0) {
		t.Fatalf("expected difficulty back to 0 after two poor rounds, got %v", got)
	}
	if tr.PoorStreak() != 0 {
		t.Fatalf("expected poor streak reset, got %d", tr.PoorStreak())
	}
}

func TestMiddleBandResetsBothStreaks(t *testing.T) {
	tr := New(Options{})
	tr.Advance(0.9, nil, 0)
	tr.Advance(0.5, nil, 0)
	if tr.GoodStreak() != 0 || tr.PoorStreak() != 0 {
		t.Fatalf("expected both streaks reset, got good=%d poor=%d", tr.GoodStreak(), tr.PoorStreak())
	}
	// The interrupted streak must not carry over.
	got := tr.Advance(0.9, nil, 0)
	if !almostEqual(got, 0.0) {
		t.Fatalf("expected no adjustment on a fresh good streak, got %v", got)
	}
}

func TestLatencyTerm(t *testing.T) {
	fast := []time.Duration{0, 0}
	slow := []time.Duration{12 * time.Second, 15 * time.Second}

	tr := New(Options{})
	got := tr.Advance(0.5, fast, 0)
	if !almostEqual(got, 0.3) {
		t.Fatalf("instant answers should add 0.3, got %v", got)
	}

	tr = New(Options{})
	got = tr.Advance(0.5, slow, 0)
	if !almostEqual(got, 0.0) {
		t.Fatalf("answers past the ceiling should add nothing, got %v", got)
	}

	tr = New(Options{})
	got = tr.Advance(0.5, []time.Duration{5 * time.Second}, 0)
	if !almostEqual(got, 0.15) {
		t.Fatalf("5s answers should add 0.15, got %v", got)
	}

	tr = New(Options{})
	got = tr.Advance(0.5, nil, 0)
	if !almostEqual(got, 0.0) {
		t.Fatalf("no latency samples should add nothing, got %v", got)
	}
}

func TestFrequencyTerm(t *testing.T) {
	cases := []struct {
		sessions int
		enabled  bool
		want     float64
	}{
		{3, true, 0.05},
		{5, true, 0.05},
		{2, true, 0.02},
		{1, true, 0},
		{0, true, 0},
		{3, false, 0},
	}
	for _, tc := range cases {
		tr := New(Options{FrequencyBonus: tc.enabled})
		got := tr.Advance(0.5, nil, tc.sessions)
		if !almostEqual(got, tc.want) {
			t.Fatalf("sessions=%d enabled=%v: got %v, want %v", tc.sessions, tc.enabled, got, tc.want)
		}
	}
}

func TestBiasClampedAndApplied(t *testing.T) {
	tr := New(Options{Bias: 0.5})
	got := tr.Advance(0.5, nil, 0)
	if !almostEqual(got, 0.2) {
		t.Fatalf("bias should clamp to 0.2, got %v", got)
	}

	tr = New(Options{Bias: -0.5})
	tr.Advance(0.9, nil, 0)
	tr.Advance(0.9, nil, 0)
	// +0.20 streak, -0.20 clamped bias each round.
	if !almostEqual(tr.Value(), 0.0) {
		t.Fatalf("negative bias should offset the streak bump, got %v", tr.Value())
	}
}

func TestValueStaysInRange(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	tr := New(Options{Bias: 0.1, FrequencyBonus: true})
	for i := 0; i < 500; i++ {
		latencies := make([]time.Duration, rnd.Intn(6))
		for j := range latencies {
			latencies[j] = time.Duration(rnd.Intn(20000)) * time.Millisecond
		}
		v := tr.Advance(rnd.Float64()*1.4-0.2, latencies, rnd.Intn(5))
		if v < 0 || v > 1 {
			t.Fatalf("difficulty left [0,1]: %v", v)
		}
	}
}

func TestHighThenSingleLowRoundScenario(t *testing.T) {
	// Accuracies [1.0, 1.0, 0.2]: the good streak pays out after round 2,
	// and a single poor round must not lower the value.
	slow := []time.Duration{20 * time.Second}
	tr := New(Options{})
	tr.Advance(1.0, slow, 0)
	afterTwo := tr.Advance(1.0, slow, 0)
	if !almostEqual(afterTwo, 0.20) {
		t.Fatalf("expected 0.20 after two perfect rounds, got %v", afterTwo)
	}
	afterThree := tr.Advance(0.2, slow, 0)
	if !almostEqual(afterThree, 0.20) {
		t.Fatalf("single poor round must not drop difficulty, got %v", afterThree)
	}
	if tr.PoorStreak() != 1 {
		t.Fatalf("expected poor streak 1, got %d", tr.PoorStreak())
	}
}

func TestResetReturnsToFloor(t *testing.T) {
	tr := New(Options{})
	tr.Advance(0.9, nil, 0)
	tr.Advance(0.9, nil, 0)
	tr.Reset()
	if tr.Value() != 0 || len(tr.History()) != 0 {
		t.Fatalf("expected floor value and empty history after reset")
	}
}
