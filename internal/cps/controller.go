// Package cps implements the click speed test run state machine.
package cps

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultWindow is the length of one test run.
	DefaultWindow = 5000 * time.Millisecond
	// DefaultInterval is the tick period while a run is active.
	DefaultInterval = 33 * time.Millisecond
	// BestKey names the persisted best-score slot.
	BestKey = "cps_best"
)

// State is the run state of a Controller.
type State int

const (
	// Idle means no run is active.
	Idle State = iota
	// Running means a run is being timed.
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// KV is the key-value slot used to persist the best score.
type KV interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// Task is a scheduled periodic callback.
type Task interface {
	// Stop cancels the task. No callback runs after Stop returns.
	Stop()
}

// Scheduler arms periodic callbacks on the caller's event loop.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
}

// Result describes a completed run.
type Result struct {
	StartedAt time.Time
	EndedAt   time.Time
	Window    time.Duration
	Clicks    int
	Rate      float64
	NewBest   bool
}

// Options configure a Controller. Zero values fall back to defaults.
type Options struct {
	Window   time.Duration
	Interval time.Duration
	Now      func() time.Time
	OnFinish func(Result)
	Logf     func(format string, args ...any)
}

type run struct {
	startAt time.Time
	endAt   time.Time
	clicks  int
}

// Controller owns one click test: the active run, the tick task and the best score.
// It is not safe for concurrent use; every method must be called from the same
// event loop that runs scheduler callbacks.
type Controller struct {
	kv    KV
	sched Scheduler
	opts  Options

	state State
	run   run
	task  Task
	best  float64
	disp  Display
}

// New constructs a Controller and loads the persisted best score.
func New(kv KV, sched Scheduler, opts Options) *Controller {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	c := &Controller{
		kv:    kv,
		sched: sched,
		opts:  opts,
	}
	c.best = c.loadBest()
	c.disp = Display{
		Window:      opts.Window,
		RemainingMs: opts.Window.Milliseconds(),
		Best:        c.best,
	}
	return c
}

// State returns the current run state.
func (c *Controller) State() State {
	return c.state
}

// Clicks returns the click count of the current or last run.
func (c *Controller) Clicks() int {
	return c.run.clicks
}

// Best returns the best score.
func (c *Controller) Best() float64 {
	return c.best
}

// Window returns the run length.
func (c *Controller) Window() time.Duration {
	return c.opts.Window
}

// Display returns the current display snapshot.
func (c *Controller) Display() Display {
	return c.disp
}

// Start begins a run. It is a no-op while a run is active.
func (c *Controller) Start() {
	if c.state == Running {
		return
	}
	now := c.opts.Now()
	c.state = Running
	c.run = run{
		startAt: now,
		endAt:   now.Add(c.opts.Window),
	}
	c.disp.Running = true
	c.disp.RemainingMs = c.opts.Window.Milliseconds()
	c.disp.Clicks = 0
	c.disp.Rate = 0
	c.disp.Pulse = false
	c.task = c.sched.Every(c.opts.Interval, c.Tick)
}

// RegisterClick counts one click. It is a no-op unless a run is active.
func (c *Controller) RegisterClick() {
	if c.state != Running {
		return
	}
	c.run.clicks++
	c.disp.Clicks = c.run.clicks
	c.disp.Pulse = true
}

// ClearPulse ends the click feedback highlight.
func (c *Controller) ClearPulse() {
	c.disp.Pulse = false
}

// Tick advances the display and finishes the run once the window has elapsed.
func (c *Controller) Tick() {
	if c.state != Running {
		return
	}
	now := c.opts.Now()
	remaining := c.run.endAt.Sub(now)
	c.disp.RemainingMs = max(remaining.Milliseconds(), 0)
	if remaining <= 0 {
		c.Finish()
		return
	}
	elapsed := now.Sub(c.run.startAt).Seconds()
	if elapsed > 0 {
		c.disp.Rate = float64(c.run.clicks) / elapsed
	}
}

// Finish ends the active run, reports its final rate and updates the best score.
func (c *Controller) Finish() {
	if c.state != Running {
		return
	}
	c.stopTask()
	c.state = Idle
	c.disp.Running = false
	c.disp.Pulse = false
	c.disp.RemainingMs = 0

	final := FinalRate(c.run.clicks, c.opts.Window)
	c.disp.Rate = final

	result := Result{
		StartedAt: c.run.startAt,
		EndedAt:   c.opts.Now(),
		Window:    c.opts.Window,
		Clicks:    c.run.clicks,
		Rate:      final,
	}
	if final > c.best {
		c.best = final
		c.disp.Best = final
		result.NewBest = true
		c.saveBest()
	}
	if c.opts.OnFinish != nil {
		c.opts.OnFinish(result)
	}
}

// Reset stops any active run and returns to the initial display. The best score is kept.
func (c *Controller) Reset() {
	c.stopTask()
	c.state = Idle
	c.run = run{}
	c.disp = Display{
		Window:      c.opts.Window,
		RemainingMs: c.opts.Window.Milliseconds(),
		Best:        c.best,
	}
}

// FinalRate is the rate of a completed run over the full window.
func FinalRate(clicks int, window time.Duration) float64 {
	secs := window.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(clicks) / secs
}

// ParseBest decodes a persisted best score. Malformed values decode to 0.
func ParseBest(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// FormatBest encodes a best score for persistence.
func FormatBest(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Controller) stopTask() {
	if c.task == nil {
		return
	}
	c.task.Stop()
	c.task = nil
}

func (c *Controller) loadBest() float64 {
	if c.kv == nil {
		return 0
	}
	raw, ok, err := c.kv.GetValue(context.Background(), BestKey)
	if err != nil {
		c.opts.Logf("failed to load best score: %v\n", err)
		return 0
	}
	if !ok {
		return 0
	}
	return ParseBest(raw)
}

func (c *Controller) saveBest() {
	if c.kv == nil {
		return
	}
	if err := c.kv.SetValue(context.Background(), BestKey, FormatBest(c.best)); err != nil {
		c.opts.Logf("failed to save best score: %v\n", err)
	}
}
