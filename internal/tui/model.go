// Package tui provides the Bubble Tea click test interface.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuicps/internal/cps"
	"github.com/verte-zerg/tuicps/internal/model"
	statsPkg "github.com/verte-zerg/tuicps/internal/stats"
)

const pulseDuration = 40 * time.Millisecond

// Store is the persistence used by the click test.
type Store interface {
	cps.KV
	InsertRun(ctx context.Context, run model.RunStats) (int64, error)
	ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunAggregate, error)
}

type pulseMsg struct {
	seq int
}

// Model implements the Bubble Tea click test UI.
type Model struct {
	config   model.Config
	store    Store
	sched    *teaScheduler
	ctrl     *cps.Controller
	clickKey string

	width  int
	height int

	pulseSeq  int
	lastTitle string

	lastRate float64
	hasLast  bool
	runCount int
	rateSum  float64
}

// NewModel constructs a click test TUI model.
func NewModel(cfg model.Config, st Store) *Model {
	return newModel(cfg, st, time.Now)
}

func newModel(cfg model.Config, st Store, now func() time.Time) *Model {
	m := &Model{
		config:   cfg,
		store:    st,
		sched:    &teaScheduler{},
		clickKey: NormalizeKey(cfg.ClickKey),
	}
	m.ctrl = cps.New(st, m.sched, cps.Options{
		Window:   time.Duration(cfg.WindowMs) * time.Millisecond,
		Interval: time.Duration(cfg.TickMs) * time.Millisecond,
		Now:      now,
		OnFinish: m.recordRun,
		Logf:     logErrf,
	})
	m.loadFooterStats()
	return m
}

// NormalizeKey maps config key names to Bubble Tea key strings.
func NormalizeKey(key string) string {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", "space":
		return " "
	case "enter", "return":
		return "enter"
	case "tab":
		return "tab"
	default:
		return strings.TrimSpace(key)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.syncTitle()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.sched.handle(msg)
		return m, m.afterChange()
	case pulseMsg:
		if msg.seq == m.pulseSeq {
			m.ctrl.ClearPulse()
		}
		return m, nil
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return m, m.press(msg.X, msg.Y)
		}
		return m, nil
	case tea.KeyMsg:
		key := msg.String()
		if msg.Type == tea.KeySpace {
			key = " "
		}
		if m.ctrl.State() == cps.Running && key == m.clickKey {
			return m, m.click()
		}
		switch key {
		case "ctrl+c", "q":
			m.ctrl.Reset()
			return m, tea.Quit
		case "s", "enter":
			m.ctrl.Start()
			return m, m.afterChange()
		case "r":
			m.ctrl.Reset()
			return m, m.afterChange()
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

// press dispatches a left mouse press to the button under it.
func (m *Model) press(x, y int) tea.Cmd {
	switch m.render().hit(x, y) {
	case buttonStart:
		m.ctrl.Start()
		return m.afterChange()
	case buttonClick:
		return m.click()
	case buttonReset:
		m.ctrl.Reset()
		return m.afterChange()
	default:
		return nil
	}
}

func (m *Model) click() tea.Cmd {
	if m.ctrl.State() != cps.Running {
		return nil
	}
	m.ctrl.RegisterClick()
	m.pulseSeq++
	seq := m.pulseSeq
	return tea.Tick(pulseDuration, func(time.Time) tea.Msg {
		return pulseMsg{seq: seq}
	})
}

// afterChange schedules the next tick and updates the window title.
func (m *Model) afterChange() tea.Cmd {
	return tea.Batch(m.sched.next(), m.syncTitle())
}

func (m *Model) syncTitle() tea.Cmd {
	title := m.ctrl.Display().Title()
	if title == m.lastTitle {
		return nil
	}
	m.lastTitle = title
	return tea.SetWindowTitle(title)
}

func (m *Model) recordRun(res cps.Result) {
	run := model.RunStats{
		StartedAt: res.StartedAt,
		EndedAt:   res.EndedAt,
		WindowMs:  res.Window.Milliseconds(),
		Clicks:    res.Clicks,
		Rate:      res.Rate,
		NewBest:   res.NewBest,
	}
	if _, err := m.store.InsertRun(context.Background(), run); err != nil {
		logErrf("failed to save run: %v\n", err)
	}
	m.lastRate = res.Rate
	m.hasLast = true
	m.runCount++
	m.rateSum += res.Rate
}

func (m *Model) loadFooterStats() {
	runs, err := m.store.ListRuns(context.Background(), model.StatsConfig{})
	if err != nil {
		logErrf("failed to load run history: %v\n", err)
		return
	}
	if len(runs) == 0 {
		return
	}
	summary := statsPkg.Summarize(runs)
	m.lastRate = summary.LastRate
	m.hasLast = true
	m.runCount = summary.Runs
	m.rateSum = summary.AvgRate * float64(summary.Runs)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
