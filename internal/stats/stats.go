// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tuicps/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Rate computes clicks per second over a duration.
func Rate(clicks int, durationMs int64) float64 {
	if durationMs <= 0 {
		return 0
	}
	return float64(clicks) / (float64(durationMs) / 1000.0)
}

// Summary aggregates stored runs.
type Summary struct {
	Runs        int
	TotalClicks int
	AvgRate     float64
	BestRate    float64
	LastRate    float64
	BestCount   int
}

// Summarize folds runs into a Summary.
func Summarize(runs []model.RunAggregate) Summary {
	var s Summary
	if len(runs) == 0 {
		return s
	}
	var total float64
	for _, r := range runs {
		s.TotalClicks += r.Clicks
		total += r.Rate
		if r.Rate > s.BestRate {
			s.BestRate = r.Rate
		}
		if r.NewBest {
			s.BestCount++
		}
	}
	s.Runs = len(runs)
	s.AvgRate = total / float64(len(runs))
	s.LastRate = runs[len(runs)-1].Rate
	return s
}

// Rates extracts the rate series from runs.
func Rates(runs []model.RunAggregate) []float64 {
	out := make([]float64, len(runs))
	for i, r := range runs {
		out[i] = r.Rate
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		b.WriteByte(sparkChars[min(max(idx, 0), last)])
	}
	return b.String()
}

// Resample shrinks values to at most width points by averaging buckets.
func Resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// RenderSummary prints a summary block for runs.
func RenderSummary(w io.Writer, runs []model.RunAggregate) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	s := Summarize(runs)
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", s.Runs),
		fmt.Sprintf("Total clicks: %d", s.TotalClicks),
		fmt.Sprintf("Avg CPS: %.2f", s.AvgRate),
		fmt.Sprintf("Best CPS: %.2f", s.BestRate),
		fmt.Sprintf("Last CPS: %.2f", s.LastRate),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints the CPS trend as a moving-average sparkline.
func RenderCurve(w io.Writer, runs []model.RunAggregate, window, width int) error {
	if len(runs) == 0 {
		return nil
	}
	series := MovingAverage(Rates(runs), window)
	lo, hi := series[0], series[0]
	for _, v := range series {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	label := fmt.Sprintf("CPS (avg %d) ", window)
	line := Sparkline(Resample(series, width-displayWidth(label)))
	if _, err := fmt.Fprintln(w, "Trend"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", label, line); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "min %.2f  max %.2f\n\n", lo, hi)
	return err
}

// RenderHistory prints one row per run, newest first.
func RenderHistory(w io.Writer, runs []model.RunAggregate) error {
	if len(runs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	headers := []string{"#", "Ended", "Window", "Clicks", "CPS", "Best"}
	rows := make([][]string, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		rows = append(rows, HistoryRow(runs[i]))
	}
	rightAlign := map[int]bool{0: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRow formats a run as table cells.
func HistoryRow(r model.RunAggregate) []string {
	best := ""
	if r.NewBest {
		best = "★"
	}
	return []string{
		fmt.Sprintf("%d", r.RunID),
		r.EndedAt.Local().Format("2006-01-02 15:04:05"),
		fmt.Sprintf("%.2fs", float64(r.WindowMs)/1000),
		fmt.Sprintf("%d", r.Clicks),
		fmt.Sprintf("%.2f", r.Rate),
		best,
	}
}
