package tui

import (
	"testing"
	"time"
)

func TestSchedulerRunsLiveTicksOnly(t *testing.T) {
	s := &teaScheduler{}
	calls := 0
	task := s.Every(10*time.Millisecond, func() { calls++ })
	if s.next() == nil {
		t.Fatalf("expected first tick command")
	}
	if s.next() != nil {
		t.Fatalf("expected a single pending tick")
	}
	s.handle(tickMsg{gen: s.gen})
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	if s.next() == nil {
		t.Fatalf("expected tick re-armed after callback")
	}
	gen := s.gen
	task.Stop()
	s.handle(tickMsg{gen: gen})
	if calls != 1 {
		t.Fatalf("expected no call after stop, got %d", calls)
	}
	if s.next() != nil {
		t.Fatalf("expected no tick after stop")
	}
}

func TestSchedulerStaleTaskStopIsNoop(t *testing.T) {
	s := &teaScheduler{}
	first := s.Every(time.Millisecond, func() {})
	first.Stop()
	calls := 0
	s.Every(time.Millisecond, func() { calls++ })
	first.Stop()
	s.handle(tickMsg{gen: s.gen})
	if calls != 1 {
		t.Fatalf("expected second task to survive stale stop, got %d calls", calls)
	}
}

func TestSchedulerStopInsideCallback(t *testing.T) {
	s := &teaScheduler{}
	var task interface{ Stop() }
	task = s.Every(time.Millisecond, func() { task.Stop() })
	s.next()
	s.handle(tickMsg{gen: s.gen})
	if s.next() != nil {
		t.Fatalf("expected no re-arm when callback stops the task")
	}
}
