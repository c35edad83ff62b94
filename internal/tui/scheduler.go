package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuicps/internal/cps"
)

// tickMsg is delivered by tea.Tick for the task armed with the same generation.
type tickMsg struct {
	gen uint64
}

// teaScheduler runs periodic callbacks on the Bubble Tea update loop.
// Each armed task gets a new generation; ticks carrying an older one are dropped.
type teaScheduler struct {
	gen      uint64
	active   bool
	interval time.Duration
	fn       func()
	armed    bool
}

type teaTask struct {
	s   *teaScheduler
	gen uint64
}

func (t *teaTask) Stop() {
	if t.s.gen != t.gen {
		return
	}
	t.s.gen++
	t.s.active = false
	t.s.fn = nil
	t.s.armed = false
}

// Every implements cps.Scheduler.
func (s *teaScheduler) Every(interval time.Duration, fn func()) cps.Task {
	s.gen++
	s.active = true
	s.interval = interval
	s.fn = fn
	s.armed = true
	return &teaTask{s: s, gen: s.gen}
}

// handle runs the callback for a live tick and re-arms the task.
func (s *teaScheduler) handle(msg tickMsg) {
	if !s.active || msg.gen != s.gen {
		return
	}
	fn := s.fn
	s.armed = true
	fn()
}

// next returns the command for the pending tick, if one is due to be scheduled.
func (s *teaScheduler) next() tea.Cmd {
	if !s.active || !s.armed {
		return nil
	}
	s.armed = false
	gen := s.gen
	return tea.Tick(s.interval, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}
