package trace

import (
	"fmt"
	"math"
)

// Category selects how a line admits and finalizes its records.
type Category uint8

const (
	Task Category = iota
	Interrupt
	Agent
	EventLine
	Note
	Value
	Queue
	Counter
	MemoryCounter
	Port

	categoryCount
)

var categoryNames = [categoryCount]string{
	Task:          "Task",
	Interrupt:     "Interrupt",
	Agent:         "Agent",
	EventLine:     "Event",
	Note:          "Note",
	Value:         "Value",
	Queue:         "Queue",
	Counter:       "Counter",
	MemoryCounter: "MemCounter",
	Port:          "Port",
}

func (c Category) String() string {
	if c < categoryCount {
		return categoryNames[c]
	}
	return "Unknown"
}

// Categories lists all line categories in display order.
func Categories() []Category {
	cats := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		cats = append(cats, c)
	}
	return cats
}

// IsActivity reports whether lines of this category carry Start/Stop
// brackets with suspends.
func (c Category) IsActivity() bool {
	return c == Task || c == Interrupt || c == Agent
}

// IsCounter reports whether lines of this category hold a wrapping hardware counter.
func (c Category) IsCounter() bool {
	return c == Counter || c == MemoryCounter
}

type behavior struct {
	admit    func(l *Line, kind EventKind, t Time, v float64)
	finalize func(l *Line, end Time)
}

var behaviors = [categoryCount]behavior{
	Task:          {admitActivity, finalizeActivity},
	Interrupt:     {admitActivity, finalizeActivity},
	Agent:         {admitActivity, finalizeActivity},
	EventLine:     {admitPlain, finalizeEvents},
	Note:          {admitPlain, finalizePlain},
	Value:         {admitPlain, finalizeValues},
	Queue:         {admitPlain, finalizeQueue},
	Counter:       {admitPlain, finalizeCounter},
	MemoryCounter: {admitPlain, finalizeCounter},
	Port:          {admitPort, finalizePlain},
}

type AnnotationKind uint8

const (
	Color AnnotationKind = iota
	Text
	Marker
)

// Annotation is a note attached to a line at a point in time.
type Annotation struct {
	Time  Time
	Kind  AnnotationKind
	Text  string
	Value float64
}

// Line is the ordered record sequence of one traced entity.
type Line struct {
	id       uint64
	category Category
	cpu      *CPU
	name     string
	visible  bool
	lifetime TimeRange

	records     []Record
	annotations []Annotation

	maxSampleDuration Time
	maxSampleValue    float64

	// admission state of activity lines
	startDepth   int
	suspendDepth int

	// neighbours of a port line
	producer *Line
	consumer *Line
}

// NewLine creates an empty line. cpu may be nil.
func NewLine(id uint64, category Category, cpu *CPU) *Line {
	return &Line{
		id:       id,
		category: category,
		cpu:      cpu,
		visible:  true,
		lifetime: TimeRange{
			Start:  Time(math.Inf(-1)),
			Finish: Time(math.Inf(1)),
		},
	}
}

// NewPort creates a port line between producer and consumer, either may be nil.
func NewPort(id uint64, cpu *CPU, producer, consumer *Line) *Line {
	l := NewLine(id, Port, cpu)
	l.producer = producer
	l.consumer = consumer
	return l
}

func (l *Line) ID() uint64         { return l.id }
func (l *Line) Category() Category { return l.category }
func (l *Line) CPU() *CPU          { return l.cpu }
func (l *Line) Visible() bool      { return l.visible }
func (l *Line) SetVisible(v bool)  { l.visible = v }
func (l *Line) SetName(name string) {
	l.name = name
}

// Name returns the display name, or the default name when none was set.
func (l *Line) Name() string {
	if l.name == "" {
		return l.defaultName()
	}
	return l.name
}

func (l *Line) defaultName() string {
	return fmt.Sprintf("%v 0x%x", l.category, l.id)
}

func (l *Line) Producer() *Line { return l.producer }
func (l *Line) Consumer() *Line { return l.consumer }

// Channel returns the queue line a port forwards to, or nil.
func (l *Line) Channel() *Line {
	if l.category != Port {
		return nil
	}
	if l.producer != nil && l.producer.category == Queue {
		return l.producer
	}
	if l.consumer != nil && l.consumer.category == Queue {
		return l.consumer
	}
	return nil
}

func (l *Line) Lifetime() TimeRange { return l.lifetime }

// SetLifetime replaces the creation/deletion interval.
func (l *Line) SetLifetime(r TimeRange) error {
	if r.Finish < r.Start {
		return &ValidationError{Line: l.Name(), Bound: "delete", Value: r.Finish, Limit: r.Start}
	}
	l.lifetime = r
	return nil
}

// SetCreated moves the creation time, which must not pass the deletion time.
func (l *Line) SetCreated(t Time) error {
	if t > l.lifetime.Finish {
		return &ValidationError{Line: l.Name(), Bound: "create", Value: t, Limit: l.lifetime.Finish}
	}
	l.lifetime.Start = t
	return nil
}

// SetDeleted moves the deletion time, which must not precede the creation time.
func (l *Line) SetDeleted(t Time) error {
	if t < l.lifetime.Start {
		return &ValidationError{Line: l.Name(), Bound: "delete", Value: t, Limit: l.lifetime.Start}
	}
	l.lifetime.Finish = t
	return nil
}

func (l *Line) MaxSampleDuration() Time   { return l.maxSampleDuration }
func (l *Line) MaxSampleValue() float64   { return l.maxSampleValue }
func (l *Line) Len() int                  { return len(l.records) }
func (l *Line) Records() []Record         { return l.records }
func (l *Line) Annotations() []Annotation { return l.annotations }

// At returns the record at index i.
func (l *Line) At(i int) (Record, bool) {
	if i < 0 || i >= len(l.records) {
		return Record{Peer: NoPeer}, false
	}
	return l.records[i], true
}

// StartTime returns the time of the first record, 0 for an empty line.
func (l *Line) StartTime() Time {
	if len(l.records) == 0 {
		return 0
	}
	return l.records[0].Time
}

// EndTime returns the time of the last record, 0 for an empty line.
func (l *Line) EndTime() Time {
	if len(l.records) == 0 {
		return 0
	}
	return l.records[len(l.records)-1].Time
}

// Admit adds a record. Records must arrive in time order, earlier times are
// clamped to the previous record. Out of protocol sequences are absorbed.
func (l *Line) Admit(kind EventKind, t Time, value float64) {
	behaviors[l.category].admit(l, kind, t, value)
}

// Annotate inserts an annotation, keeping annotations ordered by time.
func (l *Line) Annotate(a Annotation) {
	i := len(l.annotations)
	for i > 0 && l.annotations[i-1].Time > a.Time {
		i--
	}
	l.annotations = append(l.annotations, Annotation{})
	copy(l.annotations[i+1:], l.annotations[i:])
	l.annotations[i] = a
}

// Finalize closes the line at end. It must be called once, after the last Admit.
func (l *Line) Finalize(end Time) {
	behaviors[l.category].finalize(l, end)
	if l.name == "" {
		l.name = l.defaultName()
	}
}

func (l *Line) push(kind EventKind, t Time, v float64) int {
	if n := len(l.records); n > 0 && t < l.records[n-1].Time {
		t = l.records[n-1].Time
	}
	l.records = append(l.records, Record{Kind: kind, Time: t, Value: v, Peer: NoPeer})
	return len(l.records) - 1
}

func (l *Line) link(opening, closing int) {
	l.records[opening].Peer = closing
	l.records[closing].Peer = opening
}

func (l *Line) lastValue() float64 {
	if len(l.records) == 0 {
		return 0
	}
	return l.records[len(l.records)-1].Value
}

func (l *Line) pushEnd(end Time) {
	l.push(End, end, l.lastValue())
}
