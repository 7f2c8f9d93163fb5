package stats

import (
	"loov.dev/tracestat/trace"
)

// TaskStatistic computes the statistics of one task, interrupt or agent line
// over a window.
//
// Calculate mutates the scan cursors of its children; a TaskStatistic must
// not be calculated from several goroutines at once.
type TaskStatistic struct {
	line   *trace.Line
	tree   *Tree
	root   NodeID
	window trace.TimeRange

	// Inclusive covers whole executions, interrupts included.
	Inclusive *TimeStatistic
	// Exclusive covers only the active slices of executions.
	Exclusive  *TimeStatistic
	Interrupts *InterruptStatistic
	Sources    []*InterruptSourceStatistic
	Counters   []*CounterStatistic
}

// NewTaskStatistic creates the statistic of line in its own tree. The
// correlated interrupt and counter lines are taken from timeline.
func NewTaskStatistic(timeline *trace.Timeline, line *trace.Line) *TaskStatistic {
	tree := NewTree(line.Name())
	return buildTask(tree, 0, timeline, line)
}

func newTaskStatistic(tree *Tree, parent NodeID, timeline *trace.Timeline, line *trace.Line) *TaskStatistic {
	root := tree.Add(parent, line.Name(), nil)
	return buildTask(tree, root, timeline, line)
}

func buildTask(tree *Tree, root NodeID, timeline *trace.Timeline, line *trace.Line) *TaskStatistic {
	task := &TaskStatistic{
		line:       line,
		tree:       tree,
		root:       root,
		Inclusive:  &TimeStatistic{},
		Exclusive:  &TimeStatistic{},
		Interrupts: &InterruptStatistic{},
	}

	execution := tree.Add(root, "Execution", nil)
	tree.Add(execution, "Inclusive", task.Inclusive)
	tree.Add(execution, "Exclusive", task.Exclusive)

	interrupts := tree.Add(root, "Interrupts", task.Interrupts)
	if timeline != nil {
		for _, source := range timeline.Interrupts(line.CPU()) {
			if source == line {
				continue
			}
			stat := NewInterruptSourceStatistic(source)
			task.Sources = append(task.Sources, stat)
			tree.Add(interrupts, source.Name(), stat)
		}

		counters := timeline.Counters(line.CPU())
		if len(counters) > 0 {
			group := tree.Add(root, "Counters", nil)
			for _, counter := range counters {
				stat := NewCounterStatistic(counter)
				task.Counters = append(task.Counters, stat)
				tree.Add(group, counter.Name(), stat)
			}
		}
	}

	return task
}

func (task *TaskStatistic) Line() *trace.Line       { return task.line }
func (task *TaskStatistic) Root() Node              { return task.tree.Node(task.root) }
func (task *TaskStatistic) Window() trace.TimeRange { return task.window }

// Load returns the exclusive load of the task in the last window.
func (task *TaskStatistic) Load() float64 { return task.Exclusive.Load() }

// Calculate recomputes all statistics for window.
func (task *TaskStatistic) Calculate(window trace.TimeRange) {
	task.window = window

	records := task.line.Records()
	idx := task.line.Search(window.Start)
	if idx < 0 {
		task.tree.Init(task.root, window.Start, window)
		return
	}
	for idx > 0 && records[idx].Kind != trace.Start {
		idx--
	}
	task.tree.Init(task.root, records[idx].Time, window)

	for i := idx; i < len(records); i++ {
		r := records[i]
		if r.Kind != trace.Start || r.Peer == trace.NoPeer {
			continue
		}
		if r.Time > window.Finish {
			break
		}
		if stop := records[r.Peer].Time; stop > window.Start || r.Time >= window.Start {
			task.execution(records, i, r.Peer)
		}
		i = r.Peer
	}
}

// execution feeds one Start..Stop bracket to the statistics.
func (task *TaskStatistic) execution(records []trace.Record, start, stop int) {
	if from, to, ok := task.clip(records[start].Time, records[stop].Time); ok {
		task.Inclusive.Update(from, to)
	}

	for k := start; k < stop; {
		r := records[k]
		if r.Kind == trace.Suspend && r.Peer != trace.NoPeer && r.Peer <= stop {
			resume := r.Peer
			if from, to, ok := task.clip(r.Time, records[resume].Time); ok {
				task.Interrupts.Update(from, to)
				for _, source := range task.Sources {
					source.Update(from, to)
				}
			}
			for j := k + 1; j < resume; j++ {
				if records[j].Kind == trace.Suspend {
					task.Interrupts.AddNested()
				}
			}
			k = resume
			continue
		}

		if from, to, ok := task.clip(r.Time, records[k+1].Time); ok && to > from {
			task.Exclusive.Update(from, to)
			for _, counter := range task.Counters {
				counter.Update(from, to)
			}
		}
		k++
	}

	task.tree.Consolidate(task.root)
}

func (task *TaskStatistic) clip(from, to trace.Time) (trace.Time, trace.Time, bool) {
	r := trace.TimeRange{Start: from, Finish: to}.Clip(task.window)
	return r.Start, r.Finish, r.IsValid()
}
