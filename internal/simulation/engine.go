package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Phase is the run condition of the mixer.
type Phase int32

const (
	PhaseStopped Phase = iota
	PhaseRunning
)

func (p Phase) String() string {
	if p == PhaseRunning {
		return "Running"
	}
	return "Stopped"
}

// Sink receives each reading produced by the update loop.
type Sink func(value float64, timestamp time.Time)

// Engine owns the mixer's run/stop lifecycle. While running, one background
// goroutine produces a new reading every interval and hands it to the sink.
// Start and Stop are idempotent and safe to call from any goroutine; after
// Stop returns, no further reading is produced.
type Engine struct {
	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc
	done   chan struct{}

	interval time.Duration
	gen      *DataGen
	sink     Sink
	logger   *logrus.Logger
}

func NewEngine(gen *DataGen, interval time.Duration, sink Sink, logger *logrus.Logger) *Engine {
	return &Engine{
		phase:    PhaseStopped,
		interval: interval,
		gen:      gen,
		sink:     sink,
		logger:   logger,
	}
}

// Phase returns the current run condition.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Start transitions the mixer to Running and launches the update loop.
// Calling Start while already running is a no-op; there is never a second
// loop.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseRunning {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.phase = PhaseRunning
	go e.run(ctx, done)
	e.logger.WithField("interval", e.interval).Info("Mixer started")
}

// Stop cancels the update loop and waits for it to exit, so that no reading
// is produced after Stop returns. Calling Stop while already stopped is a
// no-op. An in-flight tick is allowed to complete.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseStopped {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
	e.phase = PhaseStopped
	e.logger.Info("Mixer stopped")
}

// run never takes e.mu, so Stop cannot deadlock against a tick.
func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	// emit a first reading right away so subscribers see the change
	// without waiting a full interval.
	e.sink(e.gen.Next(), time.Now().UTC())
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sink(e.gen.Next(), time.Now().UTC())
		}
	}
}
