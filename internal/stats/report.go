// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/tuicps/internal/model"
)

// RunLister loads stored runs.
type RunLister interface {
	ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs    []model.RunAggregate
	Summary Summary
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st RunLister, cfg model.StatsConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return Report{
		Runs:    runs,
		Summary: Summarize(runs),
	}, nil
}

// RenderText writes the plain text report.
func RenderText(w io.Writer, report Report, window, width int) error {
	if err := RenderSummary(w, report.Runs); err != nil {
		return err
	}
	if err := RenderCurve(w, report.Runs, window, width); err != nil {
		return err
	}
	return RenderHistory(w, report.Runs)
}
