// Package spans turns span based traces into task lines.
package spans

import (
	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs/v2"
	"golang.org/x/exp/slices"

	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by Build.
var Error = errs.Tag("spans")

// Options configures an import.
type Options struct {
	// CPU is the template for the CPU of every process.
	CPU trace.CPU
	Log logrus.FieldLogger
}

func (opts Options) logger() logrus.FieldLogger {
	if opts.Log == nil {
		return logrus.StandardLogger()
	}
	return opts.Log
}

// Span is one timed operation.
type Span struct {
	ID      string
	Parent  string
	Process string
	Name    string
	Start   trace.Time
	Finish  trace.Time
	Notes   []Note
}

// Note is a text annotation on the line of a span.
type Note struct {
	Time trace.Time
	Text string
}

type lineKey struct {
	process string
	name    string
}

// Admission is one pending Admit call.
type Admission struct {
	Line  *trace.Line
	Kind  trace.EventKind
	Time  trace.Time
	Value float64
	// Instant marks the closing half of a zero-length bracket, which stays
	// after its opening half.
	Instant bool
}

// rank orders admissions sharing a timestamp: closing records go first so
// back to back brackets on one line are not merged.
func rank(a Admission) int {
	switch a.Kind {
	case trace.Stop:
		if a.Instant {
			return 2
		}
		return 0
	case trace.Resume:
		if a.Instant {
			return 3
		}
		return 1
	case trace.Start:
		return 2
	case trace.Suspend:
		return 3
	default:
		return 4
	}
}

// Admit sorts admissions by time and feeds them to their lines. Brackets
// nested on one line collapse into the outermost one.
func Admit(admissions []Admission) {
	slices.SortStableFunc(admissions, func(a, b Admission) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return rank(a) - rank(b)
	})
	depth := make(map[*trace.Line]int)
	for _, a := range admissions {
		switch a.Kind {
		case trace.Start:
			depth[a.Line]++
			if depth[a.Line] > 1 {
				continue
			}
		case trace.Stop:
			if depth[a.Line] == 0 {
				continue
			}
			depth[a.Line]--
			if depth[a.Line] > 0 {
				continue
			}
		}
		a.Line.Admit(a.Kind, a.Time, a.Value)
	}
}

// Build creates one task line per process and span name. A span suspends
// its parent while it runs when both belong to the same process.
func Build(opts Options, spans []Span) (*trace.Timeline, error) {
	if len(spans) == 0 {
		return nil, Error.Errorf("no spans")
	}
	log := opts.logger()

	timeline := trace.NewTimeline()
	cpus := make(map[string]*trace.CPU)
	lines := make(map[lineKey]*trace.Line)

	ensure := func(span *Span) (*trace.Line, error) {
		key := lineKey{process: span.Process, name: span.Name}
		if line, ok := lines[key]; ok {
			return line, nil
		}

		cpu, ok := cpus[span.Process]
		if !ok {
			c := opts.CPU
			c.ID = len(timeline.CPUs)
			c.Name = span.Process
			cpu = &c
			cpus[span.Process] = cpu
			timeline.CPUs = append(timeline.CPUs, cpu)
		}

		line := trace.NewLine(uint64(len(lines)+1), trace.Task, cpu)
		line.SetName(span.Process + " " + span.Name)
		if err := timeline.Add(line); err != nil {
			return nil, Error.Wrap(err)
		}
		lines[key] = line
		return line, nil
	}

	byID := make(map[string]*Span, len(spans))
	for i := range spans {
		byID[spans[i].ID] = &spans[i]
	}

	var admissions []Admission
	end := trace.Time(0)
	for i := range spans {
		span := &spans[i]
		if span.Finish < span.Start {
			log.WithField("span", span.ID).Debug("skipping span finishing before it starts")
			continue
		}

		line, err := ensure(span)
		if err != nil {
			return nil, err
		}
		instant := span.Finish == span.Start
		admissions = append(admissions,
			Admission{Line: line, Kind: trace.Start, Time: span.Start},
			Admission{Line: line, Kind: trace.Stop, Time: span.Finish, Instant: instant})
		for _, note := range span.Notes {
			line.Annotate(trace.Annotation{Time: note.Time, Kind: trace.Text, Text: note.Text})
		}
		end = end.Max(span.Finish)

		parent, ok := byID[span.Parent]
		if !ok || span.Parent == "" || parent.Process != span.Process {
			continue
		}
		parentLine, err := ensure(parent)
		if err != nil {
			return nil, err
		}
		if parentLine == line {
			continue
		}
		admissions = append(admissions,
			Admission{Line: parentLine, Kind: trace.Suspend, Time: span.Start},
			Admission{Line: parentLine, Kind: trace.Resume, Time: span.Finish, Instant: instant})
	}

	Admit(admissions)
	timeline.Finalize(end)
	timeline.Sort()

	log.WithFields(logrus.Fields{
		"lines": len(timeline.Lines),
		"spans": len(spans),
	}).Debug("imported spans")

	return timeline, nil
}
