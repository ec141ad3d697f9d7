// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/mnemo/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Accuracy computes the correct share of answered trials.
func Accuracy(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// ConfusionShare computes the fraction of wrong answers that were
// semantic-category confusions.
func ConfusionShare(confusable, incorrect int) float64 {
	if incorrect == 0 {
		return 0
	}
	return float64(confusable) / float64(incorrect)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary table for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalAcc, totalLatency float64
	bestAcc := 0.0
	confusable := 0
	incorrect := 0
	earlyEnds := 0
	for _, s := range sessions {
		acc := Accuracy(s.Correct, s.Incorrect)
		totalAcc += acc
		totalLatency += float64(s.AvgLatencyMs)
		if acc > bestAcc {
			bestAcc = acc
		}
		confusable += s.Confusable
		incorrect += s.Incorrect
		if s.EndedEarly {
			earlyEnds++
		}
	}
	count := float64(len(sessions))
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sessions: %d\n", len(sessions)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Accuracy: %.1f%%\n", totalAcc/count*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best Accuracy: %.1f%%\n", bestAcc*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg Response: %.0f ms\n", totalLatency/count); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Confusion Share: %.1f%%\n", ConfusionShare(confusable, incorrect)*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Ended Early: %d\n", earlyEnds); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCurves prints learning curves for accuracy and response time.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	lats := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = Accuracy(s.Correct, s.Incorrect) * 100
		lats[i] = float64(s.AvgLatencyMs)
	}
	accs = MovingAverage(accs, window)
	lats = MovingAverage(lats, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: accs},
		{Name: "Response ms", Values: lats},
	}, width, height, useColor)
}

// RenderRoundTable prints per-round-index aggregates.
func RenderRoundTable(w io.Writer, aggs []model.RoundAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No round stats found.")
		return err
	}
	rows := make([]model.RoundAggregate, len(aggs))
	copy(rows, aggs)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Index < rows[j].Index
	})

	if _, err := fmt.Fprintln(w, "Per-Round"); err != nil {
		return err
	}
	headers := []string{"Round", "Plays", "Accuracy", "Confusion", "Avg Latency (ms)"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		trials := r.Correct + r.Incorrect
		lat := 0.0
		if trials > 0 {
			lat = float64(r.LatencySumMs) / float64(trials)
		}
		tableRows = append(tableRows, []string{
			fmt.Sprintf("%d", r.Index),
			fmt.Sprintf("%d", r.Plays),
			fmt.Sprintf("%.1f%%", Accuracy(r.Correct, r.Incorrect)*100),
			fmt.Sprintf("%.1f%%", ConfusionShare(r.Confusable, r.Incorrect)*100),
			fmt.Sprintf("%.0f", lat),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	lines := formatTable(headers, tableRows, rightAlign)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}
