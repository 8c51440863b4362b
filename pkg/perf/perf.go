// Package perf records named wall-clock measurements and reports each one as
// a share of the total elapsed time.
package perf

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Measurement is one named duration.
type Measurement struct {
	Name     string
	Duration time.Duration
}

// Recorder collects measurements from the moment it is created.
// It is safe for concurrent use.
type Recorder struct {
	mu           sync.Mutex
	now          Clock
	start        time.Time
	measurements []Measurement
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the time source. Default: time.Now.
func WithClock(c Clock) Option {
	return func(r *Recorder) {
		if c != nil {
			r.now = c
		}
	}
}

// NewRecorder creates a Recorder and starts its clock.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	return r
}

// Measure runs fn and records how long it took under name. fn runs without
// the lock held, so it may call Measure itself.
func (r *Recorder) Measure(name string, fn func()) {
	start := r.now()
	fn()
	r.Record(name, r.now().Sub(start))
}

// Record adds a measurement taken elsewhere.
func (r *Recorder) Record(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measurements = append(r.measurements, Measurement{Name: name, Duration: d})
}

// Measurements returns a copy of the recorded measurements in order.
func (r *Recorder) Measurements() []Measurement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Measurement, len(r.measurements))
	copy(out, r.measurements)
	return out
}

// Elapsed returns the time since the Recorder was created.
func (r *Recorder) Elapsed() time.Duration {
	return r.now().Sub(r.start)
}

// Report formats the total elapsed time followed by one line per
// measurement:
//
//	Total time: 12.50ms
//	diff: 10.00ms (80.0%)
//
// A zero total reports every share as 0.0%.
func (r *Recorder) Report() string {
	total := r.Elapsed()
	ms := Measurements(r.Measurements())

	var b strings.Builder
	fmt.Fprintf(&b, "Total time: %.2fms\n", millis(total))
	for _, m := range ms {
		share := 0.0
		if total > 0 {
			share = float64(m.Duration) / float64(total) * 100
		}
		fmt.Fprintf(&b, "%s: %.2fms (%.1f%%)\n", m.Name, millis(m.Duration), share)
	}
	return b.String()
}

// Measurements is a list of measurements.
type Measurements []Measurement

// Total sums the durations.
func (ms Measurements) Total() time.Duration {
	var t time.Duration
	for _, m := range ms {
		t += m.Duration
	}
	return t
}

// ByName sums the durations recorded under each name.
func (ms Measurements) ByName() map[string]time.Duration {
	out := make(map[string]time.Duration, len(ms))
	for _, m := range ms {
		out[m.Name] += m.Duration
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
