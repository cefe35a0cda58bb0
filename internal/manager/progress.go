package manager

import (
	"math/rand/v2"
	"sync"
	"time"
)

const (
	heartbeatInterval = 300 * time.Millisecond
	heartbeatFloor    = 0.3
	heartbeatSpan     = 0.6
	heartbeatCeil     = 0.95
)

// progressReporter forwards ProgressEvents to the caller in order, clamps
// values to [0,1] and drops everything after the first terminal event or
// after close.
type progressReporter struct {
	mu     sync.Mutex
	fn     ProgressFunc
	done   bool
	onSeen func(ProgressEvent)
}

func newProgressReporter(fn ProgressFunc, onSeen func(ProgressEvent)) *progressReporter {
	return &progressReporter{fn: fn, onSeen: onSeen}
}

func (r *progressReporter) report(ev ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	ev.Progress = clamp01(ev.Progress)
	if ev.Terminal() {
		r.done = true
	}
	if r.onSeen != nil {
		r.onSeen(ev)
	}
	if r.fn != nil {
		r.fn(ev)
	}
}

// close drops any later event, terminal or not.
func (r *progressReporter) close() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// heartbeat emits synthetic progress while a backend loads without reporting
// real percentages. Forward stops it on the first real event.
type heartbeat struct {
	emit ProgressFunc
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
	mu   sync.Mutex
}

func startHeartbeat(interval time.Duration, emit ProgressFunc) *heartbeat {
	if interval <= 0 {
		interval = heartbeatInterval
	}
	hb := &heartbeat{emit: emit, stop: make(chan struct{})}
	hb.wg.Add(1)
	go func() {
		defer hb.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-hb.stop:
				return
			case <-t.C:
				hb.mu.Lock()
				select {
				case <-hb.stop:
				default:
					hb.emit(ProgressEvent{Progress: syntheticProgress()})
				}
				hb.mu.Unlock()
			}
		}
	}()
	return hb
}

func syntheticProgress() float64 {
	return min(heartbeatFloor+rand.Float64()*heartbeatSpan, heartbeatCeil)
}

// Stop ends the ticks. After Stop returns no further synthetic event is emitted.
func (hb *heartbeat) Stop() {
	hb.once.Do(func() {
		hb.mu.Lock()
		close(hb.stop)
		hb.mu.Unlock()
	})
	hb.wg.Wait()
}

// Forward stops the ticks and passes a real event through.
func (hb *heartbeat) Forward(ev ProgressEvent) {
	hb.Stop()
	hb.emit(ev)
}
