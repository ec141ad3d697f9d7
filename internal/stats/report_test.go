package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/mnemo/internal/model"
	"github.com/verte-zerg/mnemo/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "mnemo.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute)
		rec := model.SessionRecord{
			StartedAt:    start,
			EndedAt:      start.Add(30 * time.Second),
			Game:         model.GameRecall,
			Rounds:       2,
			Trials:       8,
			Correct:      6,
			Confusable:   1,
			Miss:         1,
			AvgLatencyMs: 1500,
		}
		rounds := []model.RoundRecord{
			{Index: 1, Strategy: "baseline", Trials: 4, Correct: 3, Incorrect: 1, AvgLatencyMs: 1400},
			{Index: 2, Strategy: "confusable", Trials: 4, Correct: 3, Incorrect: 1, Confusable: 1, AvgLatencyMs: 1600},
		}
		id, err := st.InsertSession(ctx, rec, rounds)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{Game: string(model.GameRecall), Last: 2}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.RoundAggs) != 2 {
		t.Fatalf("expected aggregates for 2 round indexes, got %d", len(report.RoundAggs))
	}
	if report.RoundAggs[0].Plays != 2 {
		t.Fatalf("round aggregates must cover only the windowed sessions, got %d plays", report.RoundAggs[0].Plays)
	}
}
