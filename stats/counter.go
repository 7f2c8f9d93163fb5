package stats

import (
	"loov.dev/tracestat/trace"
)

// CounterStatistic accumulates the increase of a counter line over the
// active slices of a task.
//
// A slice that covers only part of a sample interval gets the matching share
// of that interval's increase, assuming the counter grows at a constant rate
// between two samples.
type CounterStatistic struct {
	line   *trace.Line
	window trace.TimeRange
	cursor int
	agg    aggregate
}

func NewCounterStatistic(line *trace.Line) *CounterStatistic {
	return &CounterStatistic{line: line}
}

func (stat *CounterStatistic) Line() *trace.Line { return stat.line }

func (stat *CounterStatistic) Init(firstSample trace.Time, window trace.TimeRange) {
	stat.window = window
	stat.agg.reset()
	stat.cursor = stat.line.Search(firstSample)
	if stat.cursor < 0 {
		stat.cursor = 0
	}
}

func (stat *CounterStatistic) Update(start, end trace.Time) {
	records := stat.line.Records()
	n := len(records)
	if n < 2 || end <= start {
		return
	}

	for stat.cursor > 0 && records[stat.cursor].Time > start {
		stat.cursor--
	}
	for stat.cursor+1 < n && records[stat.cursor+1].Time <= start {
		stat.cursor++
	}

	slice := trace.TimeRange{Start: start, Finish: end}
	for i := stat.cursor; i+1 < n; i++ {
		a, b := records[i], records[i+1]
		if a.Time >= end {
			break
		}
		sampleTime := b.Time - a.Time
		if sampleTime <= 0 {
			continue
		}
		overlap := trace.TimeRange{Start: a.Time, Finish: b.Time}.Overlap(slice)
		if overlap == 0 {
			continue
		}
		stat.agg.partial += (b.Value - a.Value) * float64(overlap) / float64(sampleTime)
	}
}

func (stat *CounterStatistic) Consolidate() { stat.agg.consolidate() }

func (stat *CounterStatistic) Count() int     { return stat.agg.count }
func (stat *CounterStatistic) Total() float64 { return stat.agg.total }
func (stat *CounterStatistic) Min() float64   { return stat.agg.min }
func (stat *CounterStatistic) Avg() float64   { return stat.agg.avg() }
func (stat *CounterStatistic) Max() float64   { return stat.agg.max }

// Load returns the counter increase per unit of window time.
func (stat *CounterStatistic) Load() float64 { return load(stat.agg.total, stat.window) }

// Utilization relates Load to the clock of the line's CPU, 0 when the clock
// is unknown.
func (stat *CounterStatistic) Utilization() float64 {
	return utilization(stat.line, stat.Load())
}

func utilization(line *trace.Line, rate float64) float64 {
	cpu := line.CPU()
	if cpu == nil {
		return 0
	}
	clock := cpu.ClockRate
	if line.Category() == trace.MemoryCounter {
		clock = cpu.MemClockRate
	}
	if clock == 0 {
		return 0
	}
	return rate / clock
}

// InterruptSourceStatistic attributes the suspends of a task to one
// interrupt line: activations starting inside a suspend are counted and the
// overlapping time is summed.
type InterruptSourceStatistic struct {
	line   *trace.Line
	window trace.TimeRange
	cursor int

	activations int
	time        trace.Time
}

func NewInterruptSourceStatistic(line *trace.Line) *InterruptSourceStatistic {
	return &InterruptSourceStatistic{line: line}
}

func (stat *InterruptSourceStatistic) Line() *trace.Line { return stat.line }

func (stat *InterruptSourceStatistic) Init(firstSample trace.Time, window trace.TimeRange) {
	stat.window = window
	stat.activations = 0
	stat.time = 0
	stat.cursor = stat.line.Search(firstSample)
	if stat.cursor < 0 {
		stat.cursor = 0
	}
}

func (stat *InterruptSourceStatistic) Update(start, end trace.Time) {
	records := stat.line.Records()
	if len(records) == 0 {
		return
	}

	for stat.cursor+1 < len(records) && records[stat.cursor+1].Time <= start {
		stat.cursor++
	}
	i := stat.cursor
	for i > 0 && records[i].Kind != trace.Start {
		i--
	}

	suspended := trace.TimeRange{Start: start, Finish: end}
	for ; i < len(records) && records[i].Time <= end; i++ {
		r := records[i]
		if r.Kind != trace.Start || r.Peer == trace.NoPeer {
			continue
		}
		stop := records[r.Peer]
		if r.Time >= start && r.Time < end {
			stat.activations++
		}
		stat.time += trace.TimeRange{Start: r.Time, Finish: stop.Time}.Overlap(suspended)
	}
}

func (stat *InterruptSourceStatistic) Consolidate() {}

func (stat *InterruptSourceStatistic) Activations() int { return stat.activations }
func (stat *InterruptSourceStatistic) Time() trace.Time { return stat.time }

func (stat *InterruptSourceStatistic) Load() float64 {
	return load(float64(stat.time), stat.window)
}

// CounterRateStatistic is the average rate of a counter line over the whole
// window, independent of any task.
type CounterRateStatistic struct {
	line    *trace.Line
	elapsed trace.Time
	delta   float64
}

func NewCounterRateStatistic(line *trace.Line) *CounterRateStatistic {
	return &CounterRateStatistic{line: line}
}

func (stat *CounterRateStatistic) Line() *trace.Line { return stat.line }

func (stat *CounterRateStatistic) Init(firstSample trace.Time, window trace.TimeRange) {
	stat.elapsed, stat.delta = stat.line.CounterDifference(window.Start, window.Finish)
}

func (stat *CounterRateStatistic) Update(start, end trace.Time) {}
func (stat *CounterRateStatistic) Consolidate()                 {}

func (stat *CounterRateStatistic) Elapsed() trace.Time { return stat.elapsed }
func (stat *CounterRateStatistic) Delta() float64      { return stat.delta }

// Rate returns the counter increase per unit of time.
func (stat *CounterRateStatistic) Rate() float64 {
	if stat.elapsed <= 0 {
		return 0
	}
	return stat.delta / float64(stat.elapsed)
}

func (stat *CounterRateStatistic) Utilization() float64 {
	return utilization(stat.line, stat.Rate())
}
