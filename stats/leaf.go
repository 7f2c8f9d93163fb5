package stats

import (
	"math"

	"loov.dev/tracestat/trace"
)

// aggregate tracks per-execution sums and their running min/avg/max.
type aggregate struct {
	count   int
	total   float64
	min     float64
	max     float64
	partial float64
}

func (agg *aggregate) reset() { *agg = aggregate{} }

func (agg *aggregate) consolidate() {
	v := agg.partial
	if agg.count == 0 || v < agg.min {
		agg.min = v
	}
	if agg.count == 0 || v > agg.max {
		agg.max = v
	}
	agg.count++
	agg.total += v
	agg.partial = 0
}

func (agg *aggregate) avg() float64 {
	if agg.count == 0 {
		return 0
	}
	return agg.total / float64(agg.count)
}

func load(total float64, window trace.TimeRange) float64 {
	d := float64(window.Duration())
	if d <= 0 || math.IsInf(d, 0) {
		return 0
	}
	return total / d
}

// TimeStatistic sums the duration of the slices it is fed per execution.
type TimeStatistic struct {
	window trace.TimeRange
	agg    aggregate
}

func (stat *TimeStatistic) Init(firstSample trace.Time, window trace.TimeRange) {
	stat.window = window
	stat.agg.reset()
}

func (stat *TimeStatistic) Update(start, end trace.Time) {
	stat.agg.partial += float64(end - start)
}

func (stat *TimeStatistic) Consolidate() { stat.agg.consolidate() }

// Count returns the number of executions.
func (stat *TimeStatistic) Count() int { return stat.agg.count }

func (stat *TimeStatistic) Total() trace.Time { return trace.Time(stat.agg.total) }
func (stat *TimeStatistic) Min() trace.Time   { return trace.Time(stat.agg.min) }
func (stat *TimeStatistic) Avg() trace.Time   { return trace.Time(stat.agg.avg()) }
func (stat *TimeStatistic) Max() trace.Time   { return trace.Time(stat.agg.max) }

// Load returns the fraction of the window covered by the slices.
func (stat *TimeStatistic) Load() float64 { return load(stat.agg.total, stat.window) }

// InterruptStatistic counts the first-level suspends of a task and the time
// spent in them. Update receives one suspended interval.
type InterruptStatistic struct {
	window     trace.TimeRange
	executions int
	interrupts int
	nested     int
	time       trace.Time

	current int
	maxPer  int
}

func (stat *InterruptStatistic) Init(firstSample trace.Time, window trace.TimeRange) {
	*stat = InterruptStatistic{window: window}
}

func (stat *InterruptStatistic) Update(start, end trace.Time) {
	stat.interrupts++
	stat.current++
	stat.time += end - start
}

// AddNested records a re-entrant suspend hidden inside a first-level one. It
// is counted as an interrupt but has no time of its own.
func (stat *InterruptStatistic) AddNested() {
	stat.interrupts++
	stat.nested++
	stat.current++
}

func (stat *InterruptStatistic) Consolidate() {
	stat.executions++
	if stat.current > stat.maxPer {
		stat.maxPer = stat.current
	}
	stat.current = 0
}

func (stat *InterruptStatistic) Count() int       { return stat.executions }
func (stat *InterruptStatistic) Interrupts() int  { return stat.interrupts }
func (stat *InterruptStatistic) Nested() int      { return stat.nested }
func (stat *InterruptStatistic) Time() trace.Time { return stat.time }

// MaxPerExecution returns the largest number of interrupts in one execution.
func (stat *InterruptStatistic) MaxPerExecution() int { return stat.maxPer }

func (stat *InterruptStatistic) Load() float64 { return load(float64(stat.time), stat.window) }
