package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSchedulerRunning is returned by Start on a running scheduler
var ErrSchedulerRunning = errors.New("scheduler already running")

// Signal is a source of refresh ticks
type Signal interface {
	C() <-chan time.Time
	Stop()
}

type tickerSignal struct {
	t *time.Ticker
}

// NewTicker returns a Signal firing fps times per second
func NewTicker(fps int) Signal {
	if fps <= 0 {
		fps = 60
	}
	return &tickerSignal{t: time.NewTicker(time.Second / time.Duration(fps))}
}

func (s *tickerSignal) C() <-chan time.Time { return s.t.C }
func (s *tickerSignal) Stop()               { s.t.Stop() }

// Ticker is advanced once per refresh signal
type Ticker interface {
	Tick() (TickResult, error)
}

// Scheduler drives a Ticker from a refresh signal on its own goroutine.
//
// With an Engine as target each tick marks a new frame by advancing FrameSeq;
// the renderer runs when that frame is pulled through Frame or ExportImage,
// at most once per sequence number. Ticks nobody looks at are never drawn.
type Scheduler struct {
	target    Ticker
	newSignal func() Signal
	log       *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler. newSignal is called on every Start.
func NewScheduler(target Ticker, newSignal func() Signal, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{target: target, newSignal: newSignal, log: log}
}

// Start launches the loop. It runs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	sig := s.newSignal()

	go s.run(ctx, sig, done)
	return nil
}

func (s *Scheduler) run(ctx context.Context, sig Signal, done chan struct{}) {
	defer close(done)
	defer s.release(done)
	defer sig.Stop()

	s.log.Debug("scheduler started")
	var notLoaded bool
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("scheduler stopped")
			return
		case <-sig.C():
		}

		if _, err := s.target.Tick(); err != nil {
			if errors.Is(err, ErrNotLoaded) {
				if !notLoaded {
					s.log.Debug("waiting for graph")
					notLoaded = true
				}
				continue
			}
			s.log.Warn("tick failed", zap.Error(err))
			continue
		}
		notLoaded = false
	}
}

// Stop cancels the loop at the next tick boundary and waits for it to exit.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// release clears the running state when the loop exits on its own
func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.cancel()
		s.cancel, s.done = nil, nil
	}
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}
