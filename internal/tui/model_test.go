package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuicps/internal/cps"
	"github.com/verte-zerg/tuicps/internal/model"
)

type fakeStore struct {
	values map[string]string
	runs   []model.RunStats
	prior  []model.RunAggregate
}

func (f *fakeStore) GetValue(_ context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) SetValue(_ context.Context, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func (f *fakeStore) InsertRun(_ context.Context, run model.RunStats) (int64, error) {
	f.runs = append(f.runs, run)
	return int64(len(f.runs)), nil
}

func (f *fakeStore) ListRuns(context.Context, model.StatsConfig) ([]model.RunAggregate, error) {
	return f.prior, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestModel(t *testing.T, st *fakeStore) (*Model, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := model.Config{WindowMs: 5000, TickMs: 33, ClickKey: "space"}
	return newModel(cfg, st, clock.Now), clock
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func spaceKey() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
}

func TestSpaceIgnoredWhileIdle(t *testing.T) {
	m, _ := newTestModel(t, &fakeStore{})
	m.Update(spaceKey())
	if m.ctrl.Clicks() != 0 {
		t.Fatalf("expected no clicks while idle")
	}
}

func TestFullRunRecordsHistory(t *testing.T) {
	st := &fakeStore{values: map[string]string{cps.BestKey: "1.5"}}
	m, clock := newTestModel(t, st)

	_, cmd := m.Update(keyRunes("s"))
	if cmd == nil {
		t.Fatalf("expected tick command after start")
	}
	if m.ctrl.State() != cps.Running {
		t.Fatalf("expected running after start")
	}
	for i := 0; i < 10; i++ {
		m.Update(spaceKey())
	}
	clock.now = clock.now.Add(2 * time.Second)
	m.Update(tickMsg{gen: m.sched.gen})
	if got := m.ctrl.Display().RateText(); got != "5.00" {
		t.Fatalf("expected live rate 5.00, got %s", got)
	}

	clock.now = clock.now.Add(3 * time.Second)
	m.Update(tickMsg{gen: m.sched.gen})
	if m.ctrl.State() != cps.Idle {
		t.Fatalf("expected run to finish")
	}
	if len(st.runs) != 1 || st.runs[0].Clicks != 10 || st.runs[0].Rate != 2 || !st.runs[0].NewBest {
		t.Fatalf("unexpected recorded runs: %+v", st.runs)
	}
	if st.values[cps.BestKey] != "2" {
		t.Fatalf("expected best persisted, got %q", st.values[cps.BestKey])
	}
	if !strings.Contains(m.renderFooter(), "Last 2.00 CPS") {
		t.Fatalf("footer missing last run: %s", m.renderFooter())
	}
}

func TestStaleTickAfterResetIgnored(t *testing.T) {
	st := &fakeStore{}
	m, clock := newTestModel(t, st)
	m.Update(keyRunes("s"))
	gen := m.sched.gen
	m.Update(spaceKey())
	m.Update(keyRunes("r"))

	clock.now = clock.now.Add(10 * time.Second)
	m.Update(tickMsg{gen: gen})
	if len(st.runs) != 0 {
		t.Fatalf("expected stale tick to be dropped, got runs %+v", st.runs)
	}
	if m.sched.next() != nil {
		t.Fatalf("expected no re-armed tick after reset")
	}
	if m.ctrl.Display().TimeText() != "5.00s" {
		t.Fatalf("expected full window after reset, got %s", m.ctrl.Display().TimeText())
	}
}

func TestRestartIgnoresPreviousGeneration(t *testing.T) {
	st := &fakeStore{}
	m, clock := newTestModel(t, st)
	m.Update(keyRunes("s"))
	old := m.sched.gen
	m.Update(keyRunes("r"))
	m.Update(keyRunes("s"))
	if m.sched.gen == old {
		t.Fatalf("expected new generation on restart")
	}
	clock.now = clock.now.Add(time.Second)
	m.Update(tickMsg{gen: old})
	if m.ctrl.Display().RemainingMs != 5000 {
		t.Fatalf("expected old tick ignored, remaining %d", m.ctrl.Display().RemainingMs)
	}
	m.Update(tickMsg{gen: m.sched.gen})
	if m.ctrl.Display().RemainingMs != 4000 {
		t.Fatalf("expected live tick applied, remaining %d", m.ctrl.Display().RemainingMs)
	}
}

func TestPulseClearsOnMatchingMessage(t *testing.T) {
	m, _ := newTestModel(t, &fakeStore{})
	m.Update(keyRunes("s"))
	m.Update(spaceKey())
	m.Update(spaceKey())
	if !m.ctrl.Display().Pulse {
		t.Fatalf("expected pulse after click")
	}
	m.Update(pulseMsg{seq: 1})
	if !m.ctrl.Display().Pulse {
		t.Fatalf("expected older pulse message to be ignored")
	}
	m.Update(pulseMsg{seq: 2})
	if m.ctrl.Display().Pulse {
		t.Fatalf("expected pulse cleared")
	}
}

// buttonCell returns a screen cell inside the named button of the rendered view.
func buttonCell(t *testing.T, m *Model, label string) (int, int) {
	t.Helper()
	marker := "│  " + label
	for y, line := range strings.Split(ansi.Strip(m.View()), "\n") {
		if i := strings.Index(line, marker); i >= 0 {
			return runewidth.StringWidth(line[:i]) + runewidth.StringWidth(marker) - 1, y
		}
	}
	t.Fatalf("button %q not found in view:\n%s", label, m.View())
	return 0, 0
}

func leftPress(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func TestMouseButtons(t *testing.T) {
	m, _ := newTestModel(t, &fakeStore{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m.Update(leftPress(buttonCell(t, m, "Click")))
	if m.ctrl.State() != cps.Idle || m.ctrl.Clicks() != 0 {
		t.Fatalf("expected disabled Click button to do nothing while idle")
	}

	m.Update(leftPress(buttonCell(t, m, "Start")))
	if m.ctrl.State() != cps.Running {
		t.Fatalf("expected Start button to start a run, got %s", m.ctrl.State())
	}

	m.Update(leftPress(buttonCell(t, m, "Click")))
	m.Update(leftPress(buttonCell(t, m, "Click")))
	if m.ctrl.Clicks() != 2 {
		t.Fatalf("expected two clicks from Click button, got %d", m.ctrl.Clicks())
	}

	m.Update(leftPress(buttonCell(t, m, "Start")))
	if m.ctrl.State() != cps.Running || m.ctrl.Clicks() != 2 {
		t.Fatalf("expected Start button press while running to change nothing, got %s/%d", m.ctrl.State(), m.ctrl.Clicks())
	}

	m.Update(leftPress(0, 0))
	cx, cy := buttonCell(t, m, "Click")
	m.Update(tea.MouseMsg{X: cx, Y: cy, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if m.ctrl.Clicks() != 2 {
		t.Fatalf("expected presses off buttons and releases to be ignored, got %d", m.ctrl.Clicks())
	}

	m.Update(leftPress(buttonCell(t, m, "Reset")))
	if m.ctrl.State() != cps.Idle || m.ctrl.Clicks() != 0 {
		t.Fatalf("expected Reset button to reset, got %s/%d", m.ctrl.State(), m.ctrl.Clicks())
	}
}

func TestHelpTextIsNotAButton(t *testing.T) {
	m, _ := newTestModel(t, &fakeStore{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m.Update(keyRunes("s"))
	for y, line := range strings.Split(ansi.Strip(m.View()), "\n") {
		if i := strings.Index(line, "Reset: r"); i >= 0 {
			m.Update(leftPress(runewidth.StringWidth(line[:i])+1, y))
		}
	}
	if m.ctrl.State() != cps.Running || m.ctrl.Clicks() != 0 {
		t.Fatalf("expected press on help text to do nothing, got %s/%d", m.ctrl.State(), m.ctrl.Clicks())
	}
}

func TestButtonBoundsMatchView(t *testing.T) {
	m, _ := newTestModel(t, &fakeStore{})
	m.Update(tea.WindowSizeMsg{Width: 81, Height: 25})
	f := m.render()
	for label, b := range map[string]button{"Start": buttonStart, "Click": buttonClick, "Reset": buttonReset} {
		x, y := buttonCell(t, m, label)
		if got := f.hit(x, y); got != b {
			t.Fatalf("cell (%d,%d) of %s hit %v", x, y, label, got)
		}
		r := f.buttons[b]
		if r.w != lipgloss.Width(buttonStyle.Render(label)) || r.h != 3 {
			t.Fatalf("unexpected %s bounds %+v", label, r)
		}
	}
	if f.hit(0, 0) != buttonNone {
		t.Fatalf("expected corner to miss all buttons")
	}
}

func TestTitleFollowsState(t *testing.T) {
	m, clock := newTestModel(t, &fakeStore{})
	if m.Init() == nil {
		t.Fatalf("expected initial title command")
	}
	if m.lastTitle != cps.AppTitle {
		t.Fatalf("unexpected idle title %q", m.lastTitle)
	}
	m.Update(keyRunes("s"))
	if m.lastTitle != "5.00s • "+cps.AppTitle {
		t.Fatalf("unexpected running title %q", m.lastTitle)
	}
	clock.now = clock.now.Add(1500 * time.Millisecond)
	m.Update(tickMsg{gen: m.sched.gen})
	if m.lastTitle != "3.50s • "+cps.AppTitle {
		t.Fatalf("unexpected running title %q", m.lastTitle)
	}
}

func TestFooterFromHistory(t *testing.T) {
	st := &fakeStore{prior: []model.RunAggregate{{Rate: 2}, {Rate: 4}}}
	m, _ := newTestModel(t, st)
	out := m.renderFooter()
	for _, want := range []string{"Runs 2", "Last 4.00 CPS", "Avg 3.00 CPS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
}

func TestViewShowsStats(t *testing.T) {
	st := &fakeStore{values: map[string]string{cps.BestKey: "3.25"}}
	m, _ := newTestModel(t, st)
	out := m.View()
	for _, want := range []string{cps.AppTitle, "5.00s", "0.00", "3.25", "Start", "Click", "Reset", "space"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{"": " ", "Space": " ", "enter": "enter", "x": "x", " x ": "x"}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCustomClickKey(t *testing.T) {
	clock := &testClock{now: time.Unix(0, 0)}
	m := newModel(model.Config{WindowMs: 5000, TickMs: 33, ClickKey: " x "}, &fakeStore{}, clock.Now)
	m.Update(keyRunes("s"))
	m.Update(keyRunes("x"))
	m.Update(spaceKey())
	if m.ctrl.Clicks() != 1 {
		t.Fatalf("expected only custom key to click, got %d", m.ctrl.Clicks())
	}
}
