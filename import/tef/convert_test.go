package tef_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracestat/import/tef"
	"loov.dev/tracestat/trace"
)

const sample = `{"traceEvents": [
	{"ph": "M", "pid": 1, "tid": 1, "name": "process_name", "args": {"name": "core0"}},
	{"ph": "B", "pid": 1, "tid": 1, "ts": 0, "name": "main", "args": {"color": 3}},
	{"ph": "C", "pid": 1, "tid": 1, "ts": 0, "name": "cycles", "args": {"cycles": 0}},
	{"ph": "X", "pid": 1, "tid": 1, "ts": 2000, "dur": 3000, "name": "timer", "cat": "irq"},
	{"ph": "i", "pid": 1, "tid": 1, "ts": 3000, "name": "log", "cat": "note", "args": {"text": "hello"}},
	{"ph": "i", "pid": 1, "tid": 1, "ts": 6000, "name": "tick"},
	{"ph": "b", "pid": 1, "tid": 1, "ts": 6000, "id": 1, "name": "rx", "cat": "queue", "args": {"count": 2}},
	{"ph": "e", "pid": 1, "tid": 1, "ts": 7000, "id": 1, "name": "rx", "cat": "queue"},
	{"ph": "E", "pid": 1, "tid": 1, "ts": 10000, "name": "main"},
	{"ph": "C", "pid": 1, "tid": 1, "ts": 10000, "name": "cycles", "args": {"cycles": 1000}},
	{"ph": "O", "pid": 1, "tid": 1, "ts": 10000, "name": "snapshot"}
]}`

func kinds(line *trace.Line) []trace.EventKind {
	var xs []trace.EventKind
	for _, r := range line.Records() {
		xs = append(xs, r.Kind)
	}
	return xs
}

func TestConvert(t *testing.T) {
	timeline, err := tef.Load(strings.NewReader(sample), tef.Options{
		CPU: trace.CPU{ClockRate: 1e5},
	})
	require.NoError(t, err)

	require.Len(t, timeline.CPUs, 1)
	assert.Equal(t, "core0", timeline.CPUs[0].Name)
	assert.Equal(t, 1e5, timeline.CPUs[0].ClockRate)
	assert.Equal(t, trace.TimeRange{Start: 0, Finish: 0.01}, timeline.TimeRange)

	task := timeline.Find("1 main")
	require.NotNil(t, task)
	assert.Equal(t, trace.Task, task.Category())
	if diff := cmp.Diff([]trace.EventKind{
		trace.Start, trace.Suspend, trace.Resume, trace.Stop, trace.End,
	}, kinds(task)); diff != "" {
		t.Errorf("task records (-want +got):\n%s", diff)
	}
	assert.Equal(t, trace.Time(0.002), task.Records()[1].Time)
	assert.Equal(t, trace.Time(0.005), task.Records()[2].Time)
	assert.Equal(t, 3.0, task.Records()[0].Value)

	isr := timeline.Find("1 timer")
	require.NotNil(t, isr)
	assert.Equal(t, trace.Interrupt, isr.Category())
	assert.Equal(t, []trace.EventKind{trace.Start, trace.Stop, trace.End}, kinds(isr))

	counter := timeline.Find("1 cycles")
	require.NotNil(t, counter)
	assert.Equal(t, trace.Counter, counter.Category())
	_, delta := counter.CounterDifference(0, 0.01)
	assert.Equal(t, 1000.0, delta)

	note := timeline.Find("1 log")
	require.NotNil(t, note)
	text, ok := note.AnnotationTextAt(0.003)
	require.True(t, ok)
	assert.Equal(t, "hello", text)

	tick := timeline.Find("1 tick")
	require.NotNil(t, tick)
	assert.Equal(t, trace.EventLine, tick.Category())

	queue := timeline.Find("1 rx")
	require.NotNil(t, queue)
	assert.Equal(t, trace.Queue, queue.Category())
	assert.Equal(t, 2.0, queue.MaxSampleValue())
}

func TestConvertZeroDuration(t *testing.T) {
	timeline, err := tef.Load(strings.NewReader(`[
		{"ph": "X", "pid": 1, "tid": 1, "ts": 1000, "dur": 0, "name": "blip"},
		{"ph": "B", "pid": 1, "tid": 3, "ts": 2000, "name": "mark"},
		{"ph": "E", "pid": 1, "tid": 3, "ts": 2000, "name": "mark"},
		{"ph": "X", "pid": 1, "tid": 2, "ts": 0, "dur": 100000, "name": "long"}
	]`), tef.Options{})
	require.NoError(t, err)

	for _, name := range []string{"1 blip", "1 mark"} {
		line := timeline.Find(name)
		require.NotNil(t, line, name)
		assert.Equal(t, []trace.EventKind{trace.Start, trace.Stop, trace.End}, kinds(line), name)

		start, _ := line.At(0)
		stop, _ := line.At(1)
		assert.Equal(t, start.Time, stop.Time, name)
		assert.Equal(t, 1, start.Peer, name)
		assert.Equal(t, trace.Time(0), line.MaxSampleDuration(), name)
	}

	blip := timeline.Find("1 blip")
	start, _ := blip.At(0)
	assert.Equal(t, micros(1000), start.Time)
	end, _ := blip.At(2)
	assert.Equal(t, micros(100000), end.Time)
}

func micros(v float64) trace.Time { return trace.Time(v / 1e6) }

func TestConvertEmpty(t *testing.T) {
	_, err := tef.Load(strings.NewReader(`{"traceEvents": []}`), tef.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trace events")
}

func TestConvertMultipleCounters(t *testing.T) {
	timeline, err := tef.Load(strings.NewReader(`[
		{"ph": "C", "pid": 2, "ts": 0, "name": "ctr", "args": {"cycles": 5, "memcycles": 1, "level": 7}},
		{"ph": "C", "pid": 2, "ts": 1000, "name": "ctr", "args": {"cycles": 9, "memcycles": 3, "level": 2}}
	]`), tef.Options{})
	require.NoError(t, err)

	var names []string
	for _, line := range timeline.Lines {
		names = append(names, line.Category().String()+" "+line.Name())
	}
	assert.ElementsMatch(t, []string{
		"Counter 2 ctr.cycles",
		"MemCounter 2 ctr.memcycles",
		"Value 2 ctr.level",
	}, names)
	assert.Equal(t, float64(1<<32+2), timeline.Find("2 ctr.level").MaxSampleValue())
}
