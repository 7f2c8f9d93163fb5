package stats

import (
	"loov.dev/tracestat/trace"
)

// TraceStatistic holds one TaskStatistic per task, interrupt and agent line
// and one rate per counter line of a timeline.
type TraceStatistic struct {
	timeline *trace.Timeline
	tree     *Tree
	window   trace.TimeRange

	Tasks []*TaskStatistic
	Rates []*CounterRateStatistic
}

func NewTraceStatistic(timeline *trace.Timeline) *TraceStatistic {
	tree := NewTree("Trace")
	ts := &TraceStatistic{
		timeline: timeline,
		tree:     tree,
	}

	lines := timeline.Tasks()
	if len(lines) > 0 {
		group := tree.Add(0, "Tasks", nil)
		for _, line := range lines {
			ts.Tasks = append(ts.Tasks, newTaskStatistic(tree, group, timeline, line))
		}
	}

	var counters []*trace.Line
	for _, line := range timeline.Lines {
		if line.Category().IsCounter() {
			counters = append(counters, line)
		}
	}
	if len(counters) > 0 {
		group := tree.Add(0, "Counters", nil)
		for _, line := range counters {
			rate := NewCounterRateStatistic(line)
			ts.Rates = append(ts.Rates, rate)
			tree.Add(group, line.Name(), rate)
		}
	}

	return ts
}

func (ts *TraceStatistic) Root() Node              { return ts.tree.Root() }
func (ts *TraceStatistic) Tree() *Tree             { return ts.tree }
func (ts *TraceStatistic) Window() trace.TimeRange { return ts.window }

// Task returns the statistic of line, or nil.
func (ts *TraceStatistic) Task(line *trace.Line) *TaskStatistic {
	for _, task := range ts.Tasks {
		if task.Line() == line {
			return task
		}
	}
	return nil
}

// Calculate recomputes every task and counter rate for window.
func (ts *TraceStatistic) Calculate(window trace.TimeRange) {
	ts.window = window
	for _, task := range ts.Tasks {
		task.Calculate(window)
	}
	for _, rate := range ts.Rates {
		rate.Init(window.Start, window)
	}
}

// Load returns the summed exclusive load of the task lines captured on cpu;
// interrupt and agent lines are not included.
func (ts *TraceStatistic) Load(cpu *trace.CPU) float64 {
	var total float64
	for _, task := range ts.Tasks {
		if task.Line().Category() == trace.Task && task.Line().CPU() == cpu {
			total += task.Load()
		}
	}
	return total
}
