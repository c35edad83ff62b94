// Package model defines shared data structures.
package model

import "time"

// Config defines click test settings.
type Config struct {
	WindowMs int
	TickMs   int
	ClickKey string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// RunStats captures a completed click test run.
type RunStats struct {
	StartedAt time.Time
	EndedAt   time.Time
	WindowMs  int64
	Clicks    int
	Rate      float64
	NewBest   bool
}

// RunAggregate summarizes a stored run for reporting.
type RunAggregate struct {
	RunID    int64
	EndedAt  time.Time
	WindowMs int64
	Clicks   int
	Rate     float64
	NewBest  bool
}
