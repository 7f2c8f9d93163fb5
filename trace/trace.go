package trace

import (
	"sort"

	"github.com/zeebo/errs/v2"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("trace")

// Timeline holds every line of one loaded trace.
type Timeline struct {
	CPUs  []*CPU
	Lines []*Line

	lineByID map[LineID]*Line
	TimeRange
}

// LineID identifies a line; ids are unique per category.
type LineID struct {
	Category Category
	ID       uint64
}

func NewTimeline() *Timeline {
	return &Timeline{
		lineByID:  make(map[LineID]*Line),
		TimeRange: InvalidRange,
	}
}

// Add registers a line.
func (timeline *Timeline) Add(line *Line) error {
	id := LineID{Category: line.Category(), ID: line.ID()}
	if _, ok := timeline.lineByID[id]; ok {
		return Error.Errorf("duplicate line %v 0x%x", id.Category, id.ID)
	}
	timeline.lineByID[id] = line
	timeline.Lines = append(timeline.Lines, line)
	return nil
}

// Line finds a line by category and id, or returns nil.
func (timeline *Timeline) Line(category Category, id uint64) *Line {
	return timeline.lineByID[LineID{Category: category, ID: id}]
}

// Find returns the first line with the given name, or nil.
func (timeline *Timeline) Find(name string) *Line {
	for _, line := range timeline.Lines {
		if line.Name() == name {
			return line
		}
	}
	return nil
}

// ByCategory returns the lines of one category in registration order.
func (timeline *Timeline) ByCategory(category Category) []*Line {
	return timeline.filter(func(line *Line) bool {
		return line.Category() == category
	})
}

// Tasks returns the task, interrupt and agent lines.
func (timeline *Timeline) Tasks() []*Line {
	return timeline.filter(func(line *Line) bool {
		return line.Category().IsActivity()
	})
}

// Counters returns the counter lines captured on cpu.
func (timeline *Timeline) Counters(cpu *CPU) []*Line {
	return timeline.filter(func(line *Line) bool {
		return line.Category().IsCounter() && line.CPU() == cpu
	})
}

// Interrupts returns the interrupt lines captured on cpu.
func (timeline *Timeline) Interrupts(cpu *CPU) []*Line {
	return timeline.filter(func(line *Line) bool {
		return line.Category() == Interrupt && line.CPU() == cpu
	})
}

func (timeline *Timeline) filter(keep func(*Line) bool) []*Line {
	var lines []*Line
	for _, line := range timeline.Lines {
		if keep(line) {
			lines = append(lines, line)
		}
	}
	return lines
}

// Finalize finalizes every line at end and updates the time range.
func (timeline *Timeline) Finalize(end Time) {
	for _, line := range timeline.Lines {
		if line.Len() > 0 {
			timeline.TimeRange.Start = timeline.TimeRange.Start.Min(line.StartTime())
		}
		line.Finalize(end)
	}
	if timeline.TimeRange.Start > end {
		timeline.TimeRange.Start = end
	}
	timeline.TimeRange.Finish = end
}

func (timeline *Timeline) Sort() {
	sort.SliceStable(timeline.Lines, func(i, k int) bool {
		a := timeline.Lines[i]
		b := timeline.Lines[k]
		if a.Category() == b.Category() {
			return a.ID() < b.ID()
		}
		return a.Category() < b.Category()
	})
}
