package tef

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("tef")

// Options configures an import.
type Options struct {
	// CPU is the template for the CPU of every process.
	CPU trace.CPU
	Log logrus.FieldLogger
}

// Load decodes a trace event file and converts it.
func Load(r io.Reader, opts Options) (*trace.Timeline, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, Error.Wrap(err)
	}
	return Convert(opts, &file)
}

type lineKey struct {
	pid      int64
	category trace.Category
	name     string
}

type threadKey struct {
	pid int64
	tid int64
}

type converter struct {
	opts     Options
	log      logrus.FieldLogger
	timeline *trace.Timeline

	cpus    map[int64]*trace.CPU
	lines   map[lineKey]*trace.Line
	running map[threadKey][]*trace.Line
	nextID  map[trace.Category]uint64
}

// Convert admits the events of file into lines and finalizes them at the
// last timestamp.
//
// Duration events become task lines per process and name, or interrupt and
// agent lines depending on their category. An interrupt opening on a thread
// suspends the line running on that thread. Counter events become counter or
// value lines, instant events event or note lines, async events in the
// "queue" category queue lines and flow events port lines.
func Convert(opts Options, file *File) (*trace.Timeline, error) {
	if len(file.TraceEvents) == 0 {
		return nil, Error.Errorf("no trace events")
	}

	c := &converter{
		opts:     opts,
		log:      opts.Log,
		timeline: trace.NewTimeline(),
		cpus:     make(map[int64]*trace.CPU),
		lines:    make(map[lineKey]*trace.Line),
		running:  make(map[threadKey][]*trace.Line),
		nextID:   make(map[trace.Category]uint64),
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}

	events := expand(file.TraceEvents)
	end := trace.Time(0)
	for i := range events {
		ev := &events[i]
		if err := c.event(ev); err != nil {
			return nil, err
		}
		end = end.Max(ev.Time())
	}

	c.timeline.Finalize(end)
	c.timeline.Sort()
	return c.timeline, nil
}

// expand splits complete events into begin/end pairs and orders all events
// by time, ends first. An end sharing the timestamp of its own begin keeps
// its place after that begin.
func expand(events []Event) []Event {
	type entry struct {
		ev   Event
		rank int
	}
	all := make([]entry, 0, len(events))
	open := make(map[threadKey][]float64)
	for _, ev := range events {
		thread := threadKey{pid: ev.ProcessID, tid: ev.ThreadID}
		switch ev.Phase {
		case Complete:
			begin, finish := ev, ev
			begin.Phase = DurationBegin
			finish.Phase = DurationEnd
			finish.Timestamp = ev.Timestamp + ev.Duration
			finish.Args = nil
			rank := closing(finish.Phase)
			if ev.Duration == 0 {
				rank = opening
			}
			all = append(all, entry{begin, opening}, entry{finish, rank})
			continue
		case DurationBegin:
			open[thread] = append(open[thread], ev.Timestamp)
		case DurationEnd:
			if stack := open[thread]; len(stack) > 0 {
				begin := stack[len(stack)-1]
				open[thread] = stack[:len(stack)-1]
				if begin == ev.Timestamp {
					all = append(all, entry{ev, opening})
					continue
				}
			}
		}
		all = append(all, entry{ev, closing(ev.Phase)})
	}

	slices.SortStableFunc(all, func(a, b entry) int {
		switch {
		case a.ev.Timestamp < b.ev.Timestamp:
			return -1
		case a.ev.Timestamp > b.ev.Timestamp:
			return 1
		}
		return a.rank - b.rank
	})

	sorted := make([]Event, len(all))
	for i, e := range all {
		sorted[i] = e.ev
	}
	return sorted
}

const opening = 1

func closing(ph Phase) int {
	switch ph {
	case DurationEnd, AsyncEnd, FlowEnd:
		return 0
	default:
		return opening
	}
}

func (c *converter) event(ev *Event) error {
	t := ev.Time()
	thread := threadKey{pid: ev.ProcessID, tid: ev.ThreadID}

	switch ev.Phase {
	case DurationBegin:
		line, err := c.line(ev.ProcessID, activityCategory(ev.Category), ev.Name)
		if err != nil {
			return err
		}
		if color, ok := number(ev.Args, "color"); ok {
			line.Annotate(trace.Annotation{Time: t, Kind: trace.Color, Value: color})
		}
		stack := c.running[thread]
		if line.Category() == trace.Interrupt && len(stack) > 0 {
			stack[len(stack)-1].Admit(trace.Suspend, t, 0)
		}
		c.running[thread] = append(stack, line)
		line.Admit(trace.Start, t, 0)

	case DurationEnd:
		stack := c.running[thread]
		if len(stack) == 0 {
			c.log.WithField("name", ev.Name).Debug("end without begin")
			return nil
		}
		at := len(stack) - 1
		if ev.Name != "" {
			for at >= 0 && stack[at].Name() != c.lineName(ev.ProcessID, ev.Name) {
				at--
			}
			if at < 0 {
				c.log.WithField("name", ev.Name).Debug("end without matching begin")
				return nil
			}
		}
		line := stack[at]
		stack = append(stack[:at], stack[at+1:]...)
		c.running[thread] = stack
		line.Admit(trace.Stop, t, 0)
		if line.Category() == trace.Interrupt && len(stack) > 0 {
			stack[len(stack)-1].Admit(trace.Resume, t, 0)
		}

	case Counter:
		keys := maps.Keys(ev.Args)
		slices.Sort(keys)
		for _, key := range keys {
			v, ok := number(ev.Args, key)
			if !ok {
				continue
			}
			name := ev.Name
			if len(keys) > 1 {
				name += "." + key
			}
			line, err := c.line(ev.ProcessID, counterCategory(ev.Category, key), name)
			if err != nil {
				return err
			}
			line.Admit(trace.Event, t, v)
		}

	case Instant, GlobalInstant, AsyncInstant:
		if hasCategory(ev.Category, "note") {
			line, err := c.line(ev.ProcessID, trace.Note, ev.Name)
			if err != nil {
				return err
			}
			text := ev.Name
			if s, ok := ev.Args["text"].(string); ok {
				text = s
			}
			line.Admit(trace.Event, t, 0)
			line.Annotate(trace.Annotation{Time: t, Kind: trace.Text, Text: text})
			return nil
		}
		line, err := c.line(ev.ProcessID, trace.EventLine, ev.Name)
		if err != nil {
			return err
		}
		line.Admit(trace.Start, t, 0)
		line.Admit(trace.Stop, t, 0)

	case AsyncStart, AsyncEnd:
		kind := trace.Start
		if ev.Phase == AsyncEnd {
			kind = trace.Stop
		}
		if hasCategory(ev.Category, "queue") {
			line, err := c.line(ev.ProcessID, trace.Queue, ev.Name)
			if err != nil {
				return err
			}
			delta, ok := number(ev.Args, "count")
			if !ok {
				delta = 1
			}
			if kind == trace.Stop {
				delta = -delta
			}
			line.Admit(kind, t, delta)
			return nil
		}
		line, err := c.line(ev.ProcessID, trace.Agent, ev.Name)
		if err != nil {
			return err
		}
		line.Admit(kind, t, 0)

	case FlowStart, FlowStep, FlowEnd:
		line, err := c.port(ev, thread)
		if err != nil {
			return err
		}
		line.Admit(trace.Event, t, 1)

	case Metadata:
		if ev.Name == "process_name" {
			if name, ok := ev.Args["name"].(string); ok {
				c.cpu(ev.ProcessID).Name = name
			}
		}

	default:
		c.log.WithFields(logrus.Fields{
			"phase": ev.Phase,
			"name":  ev.Name,
		}).Debug("skipping unsupported event")
	}
	return nil
}

func (c *converter) cpu(pid int64) *trace.CPU {
	if cpu, ok := c.cpus[pid]; ok {
		return cpu
	}
	cpu := c.opts.CPU
	cpu.ID = int(pid)
	cpu.Name = fmt.Sprintf("pid %d", pid)
	c.cpus[pid] = &cpu
	c.timeline.CPUs = append(c.timeline.CPUs, &cpu)
	return &cpu
}

func (c *converter) lineName(pid int64, name string) string {
	return fmt.Sprintf("%d %s", pid, name)
}

func (c *converter) line(pid int64, category trace.Category, name string) (*trace.Line, error) {
	key := lineKey{pid: pid, category: category, name: name}
	if line, ok := c.lines[key]; ok {
		return line, nil
	}
	c.nextID[category]++
	line := trace.NewLine(c.nextID[category], category, c.cpu(pid))
	line.SetName(c.lineName(pid, name))
	if err := c.timeline.Add(line); err != nil {
		return nil, Error.Wrap(err)
	}
	c.lines[key] = line
	return line, nil
}

// port returns the port line of a flow. Its producer is the line running on
// the thread that started the flow, its consumer the queue of the same name.
func (c *converter) port(ev *Event, thread threadKey) (*trace.Line, error) {
	key := lineKey{pid: ev.ProcessID, category: trace.Port, name: ev.Name}
	if line, ok := c.lines[key]; ok {
		return line, nil
	}

	var producer *trace.Line
	if stack := c.running[thread]; len(stack) > 0 {
		producer = stack[len(stack)-1]
	}
	consumer := c.lines[lineKey{pid: ev.ProcessID, category: trace.Queue, name: ev.Name}]

	c.nextID[trace.Port]++
	line := trace.NewPort(c.nextID[trace.Port], c.cpu(ev.ProcessID), producer, consumer)
	line.SetName(c.lineName(ev.ProcessID, ev.Name))
	if err := c.timeline.Add(line); err != nil {
		return nil, Error.Wrap(err)
	}
	c.lines[key] = line
	return line, nil
}

func hasCategory(categories, name string) bool {
	for _, cat := range strings.Split(strings.ToLower(categories), ",") {
		if strings.TrimSpace(cat) == name {
			return true
		}
	}
	return false
}

func activityCategory(categories string) trace.Category {
	switch {
	case hasCategory(categories, "irq"), hasCategory(categories, "isr"), hasCategory(categories, "interrupt"):
		return trace.Interrupt
	case hasCategory(categories, "agent"):
		return trace.Agent
	default:
		return trace.Task
	}
}

func counterCategory(categories, key string) trace.Category {
	switch {
	case hasCategory(categories, "memcycles"), strings.HasPrefix(key, "mem"):
		return trace.MemoryCounter
	case hasCategory(categories, "cycles"), key == "cycles":
		return trace.Counter
	default:
		return trace.Value
	}
}

func number(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
