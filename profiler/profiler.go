// Package profiler tracks per-stage timings of recognition cycles.
package profiler

import (
	"sort"
	"sync"
	"time"
)

// Stage names recorded by the pipeline.
const (
	StageCapture    = "capture"
	StagePreprocess = "preprocess"
	StageInference  = "inference"
	StageDecode     = "decode"
	StageClassify   = "classify"
	StageCompose    = "compose"
	StageCycle      = "cycle"
)

// DefaultMaxSamples is the rolling window kept per operation.
const DefaultMaxSamples = 600

// TimeTracker tracks operation timing statistics over a rolling window.
type TimeTracker struct {
	name      string
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Summary is a snapshot of one operation's timings.
type Summary struct {
	Name  string
	Count int64
	Min   time.Duration
	Max   time.Duration
	// Mean is taken over the rolling window.
	Mean time.Duration
	Last time.Duration
}

// StageProfiler records operation durations. It is safe for concurrent use.
type StageProfiler struct {
	mu             sync.RWMutex
	maxSamples     int
	operationTimes map[string]*TimeTracker
}

// NewStageProfiler creates a profiler.
//
// Arguments:
//   - maxSamples: The rolling window per operation. Zero selects DefaultMaxSamples.
//
// Returns:
//   - *StageProfiler: The profiler.
func NewStageProfiler(maxSamples int) *StageProfiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &StageProfiler{
		maxSamples:     maxSamples,
		operationTimes: make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
//   - name: The operation name.
//
// Returns:
//   - func() time.Duration: Stops the timer, records and returns the elapsed time.
func (p *StageProfiler) StartOperation(name string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		duration := time.Since(start)
		p.Record(name, duration)
		return duration
	}
}

// Record adds one duration for an operation.
func (p *StageProfiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample.
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Summaries returns a snapshot of every operation, sorted by name.
func (p *StageProfiler) Summaries() []Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Summary, 0, len(p.operationTimes))
	for _, t := range p.operationTimes {
		s := Summary{
			Name:  t.name,
			Count: t.count,
			Min:   t.minTime,
			Max:   t.maxTime,
		}
		if n := len(t.durations); n > 0 {
			s.Mean = t.totalTime / time.Duration(n)
			s.Last = t.durations[n-1]
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Summary returns the snapshot of one operation.
func (p *StageProfiler) Summary(name string) (Summary, bool) {
	for _, s := range p.Summaries() {
		if s.Name == name {
			return s, true
		}
	}
	return Summary{}, false
}

// Reset drops all recorded timings.
func (p *StageProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operationTimes = make(map[string]*TimeTracker)
}
