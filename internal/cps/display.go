package cps

import (
	"fmt"
	"time"
)

// AppTitle is the window title shown while idle.
const AppTitle = "Click Speed Tester"

// Display is the rendered state of a Controller.
type Display struct {
	Running     bool
	Window      time.Duration
	RemainingMs int64
	Clicks      int
	Rate        float64
	Best        float64
	Pulse       bool
}

// TimeText formats the remaining time, e.g. "4.25s".
func (d Display) TimeText() string {
	return FormatSeconds(d.RemainingMs)
}

// RateText formats the current or final rate.
func (d Display) RateText() string {
	return fmt.Sprintf("%.2f", d.Rate)
}

// BestText formats the best rate.
func (d Display) BestText() string {
	return fmt.Sprintf("%.2f", d.Best)
}

// Title is the window title for the current state.
func (d Display) Title() string {
	if d.Running {
		return fmt.Sprintf("%s • %s", d.TimeText(), AppTitle)
	}
	return AppTitle
}

// Progress returns the elapsed fraction of the window in [0, 1].
func (d Display) Progress() float64 {
	total := d.Window.Milliseconds()
	if total <= 0 {
		return 0
	}
	p := float64(total-d.RemainingMs) / float64(total)
	return min(max(p, 0), 1)
}

// FormatSeconds renders milliseconds as seconds with two decimals, floored at zero.
func FormatSeconds(ms int64) string {
	s := float64(max(ms, 0)) / 1000
	return fmt.Sprintf("%.2fs", s)
}
