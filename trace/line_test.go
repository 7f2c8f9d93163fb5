package trace_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracestat/trace"
)

func kinds(line *trace.Line) []trace.EventKind {
	var ks []trace.EventKind
	for _, r := range line.Records() {
		ks = append(ks, r.Kind)
	}
	return ks
}

func TestActivityBracketsAreLinked(t *testing.T) {
	line := trace.NewLine(1, trace.Task, nil)
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Suspend, 1, 0)
	line.Admit(trace.Resume, 2, 0)
	line.Admit(trace.Stop, 3, 0)
	line.Admit(trace.Start, 4, 0)
	line.Admit(trace.Start, 4.5, 0) // already running
	line.Admit(trace.Stop, 6, 0)
	line.Finalize(10)

	records := line.Records()
	lastStop := -1
	for i, r := range records {
		switch r.Kind {
		case trace.Start:
			require.NotEqual(t, trace.NoPeer, r.Peer)
			assert.Equal(t, trace.Stop, records[r.Peer].Kind)
			assert.Equal(t, i, records[r.Peer].Peer)
			assert.Greater(t, i, lastStop, "brackets overlap")
			lastStop = r.Peer
		case trace.Suspend:
			assert.Equal(t, trace.Resume, records[r.Peer].Kind)
			assert.Equal(t, i, records[r.Peer].Peer)
		}
	}
	assert.Equal(t, []trace.EventKind{
		trace.Start, trace.Suspend, trace.Resume, trace.Stop,
		trace.Start, trace.Stop, trace.End,
	}, kinds(line))
}

func TestStrayStopIsDropped(t *testing.T) {
	line := trace.NewLine(1, trace.Task, nil)
	line.Admit(trace.Stop, 1, 0)
	assert.Equal(t, 0, line.Len())

	line.Admit(trace.Start, 2, 0)
	line.Admit(trace.Stop, 3, 0)
	line.Admit(trace.Stop, 4, 0)
	assert.Equal(t, 2, line.Len())

	line.Admit(trace.Resume, 5, 0)
	line.Admit(trace.Suspend, 6, 0)
	assert.Equal(t, 2, line.Len())
}

func TestNestedSuspendsCollapse(t *testing.T) {
	line := trace.NewLine(1, trace.Interrupt, nil)
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Suspend, 1, 0)
	line.Admit(trace.Suspend, 2, 0)
	line.Admit(trace.Resume, 3, 0)
	line.Admit(trace.Resume, 4, 0)
	line.Admit(trace.Stop, 5, 0)

	assert.Equal(t, []trace.EventKind{
		trace.Start, trace.Suspend, trace.Resume, trace.Stop,
	}, kinds(line))
	assert.Equal(t, trace.Time(1), line.Records()[1].Time)
	assert.Equal(t, trace.Time(4), line.Records()[2].Time)
}

func TestStopFlushesPendingSuspend(t *testing.T) {
	line := trace.NewLine(1, trace.Agent, nil)
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Suspend, 1, 0)
	line.Admit(trace.Suspend, 2, 0)
	line.Admit(trace.Stop, 3, 0)
	line.Admit(trace.Resume, 4, 0) // nothing left to resume

	assert.Equal(t, []trace.EventKind{
		trace.Start, trace.Suspend, trace.Resume, trace.Stop,
	}, kinds(line))
	assert.Equal(t, trace.Time(3), line.Records()[2].Time)
}

func TestAdmissionClampsTime(t *testing.T) {
	line := trace.NewLine(1, trace.Value, nil)
	line.Admit(trace.Event, 5, 1)
	line.Admit(trace.Event, 3, 2)
	assert.Equal(t, trace.Time(5), line.Records()[1].Time)
}

func TestFinalizeActivityScenario(t *testing.T) {
	line := trace.NewLine(7, trace.Task, nil)
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Suspend, 2, 0)
	line.Admit(trace.Resume, 5, 0)
	line.Admit(trace.Stop, 10, 0)
	line.Finalize(20)

	require.Equal(t, 5, line.Len())
	end, _ := line.At(4)
	assert.Equal(t, trace.End, end.Kind)
	assert.Equal(t, trace.Time(20), end.Time)
	assert.Equal(t, trace.Time(10), line.MaxSampleDuration())
	assert.Equal(t, "Task 0x7", line.Name())
}

func TestFinalizeEmptyActivity(t *testing.T) {
	line := trace.NewLine(1, trace.Task, nil)
	line.Finalize(100)

	want := []trace.Record{{Kind: trace.End, Time: 100, Value: 0, Peer: trace.NoPeer}}
	if diff := cmp.Diff(want, line.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalizeClosesOpenBrackets(t *testing.T) {
	line := trace.NewLine(1, trace.Task, nil)
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Suspend, 3, 0)
	line.Finalize(10)

	want := []trace.Record{
		{Kind: trace.Start, Time: 0, Peer: 3},
		{Kind: trace.Suspend, Time: 3, Peer: 2},
		{Kind: trace.Resume, Time: 10, Peer: 1},
		{Kind: trace.Stop, Time: 10, Peer: 0},
		{Kind: trace.End, Time: 10, Peer: trace.NoPeer},
	}
	if diff := cmp.Diff(want, line.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, trace.Time(10), line.MaxSampleDuration())
}

func TestFinalizeActivityColor(t *testing.T) {
	line := trace.NewLine(1, trace.Task, nil)
	line.Annotate(trace.Annotation{Time: 4, Kind: trace.Color, Value: 0xff0000})
	line.Annotate(trace.Annotation{Time: 4, Kind: trace.Text, Text: "red"})
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Stop, 1, 0)
	line.Admit(trace.Start, 4, 0)
	line.Admit(trace.Stop, 6, 0)
	line.Admit(trace.Start, 8, 0)
	line.Admit(trace.Stop, 9, 0)
	line.Finalize(10)

	values := []float64{}
	for _, r := range line.Records() {
		values = append(values, r.Value)
	}
	assert.Equal(t, []float64{0, 0, 0xff0000, 0xff0000, 0xff0000, 0xff0000, 0xff0000}, values)
}

func TestFinalizeEvents(t *testing.T) {
	line := trace.NewLine(1, trace.EventLine, nil)
	line.Admit(trace.Start, 1, 0)
	line.Admit(trace.Stop, 1, 0)
	line.Admit(trace.Start, 2, 0)
	line.Admit(trace.Stop, 3, 0)
	line.Finalize(5)

	want := []trace.Record{
		{Kind: trace.Start, Time: 1, Value: 1, Peer: 1},
		{Kind: trace.Stop, Time: 1, Value: 1, Peer: 0},
		{Kind: trace.Start, Time: 2, Value: 2, Peer: 3},
		{Kind: trace.Stop, Time: 3, Value: 2, Peer: 2},
		{Kind: trace.End, Time: 5, Value: 2, Peer: trace.NoPeer},
	}
	if diff := cmp.Diff(want, line.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCounterWrapCorrection(t *testing.T) {
	line := trace.NewLine(1, trace.Counter, nil)
	line.Admit(trace.Event, 0, 0xFFFFFF00)
	line.Admit(trace.Event, 1, 0x00000100)
	line.Admit(trace.Event, 2, 0x00000200)
	line.Finalize(3)

	records := line.Records()
	assert.Equal(t, float64(0xFFFFFF00), records[0].Value)
	assert.Equal(t, float64(1<<32+0x100), records[1].Value)
	assert.Equal(t, float64(1<<32+0x200), records[2].Value)
	assert.Equal(t, records[2].Value, records[3].Value)
	assert.Equal(t, float64(0x200), line.MaxSampleValue())
}

func TestValueWrapCorrection(t *testing.T) {
	line := trace.NewLine(1, trace.Value, nil)
	line.Admit(trace.Event, 0, 4294967000)
	line.Admit(trace.Event, 1, 100)
	line.Finalize(2)

	want := []trace.Record{
		{Kind: trace.Event, Time: 0, Value: 4294967000, Peer: trace.NoPeer},
		{Kind: trace.Event, Time: 1, Value: 1<<32 + 100, Peer: trace.NoPeer},
		{Kind: trace.End, Time: 2, Value: 1<<32 + 100, Peer: trace.NoPeer},
	}
	if diff := cmp.Diff(want, line.Records()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, float64(1<<32+100), line.MaxSampleValue())
}

func TestCounterCorrectionIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		line := trace.NewLine(uint64(round), trace.MemoryCounter, nil)
		for i := 0; i < 200; i++ {
			line.Admit(trace.Event, trace.Time(i), float64(rng.Uint32()))
		}
		line.Finalize(200)

		records := line.Records()
		for i := 1; i < len(records); i++ {
			require.GreaterOrEqual(t, records[i].Value, records[i-1].Value, "round %d index %d", round, i)
		}
	}
}

func TestFinalizeQueue(t *testing.T) {
	line := trace.NewLine(1, trace.Queue, nil)
	line.Admit(trace.Start, 0, +8)
	line.Admit(trace.Stop, 5, -10)
	line.Admit(trace.Start, 10, +6)
	line.Finalize(20)

	assert.Equal(t, float64(8), line.MaxSampleValue())

	records := line.Records()
	assert.Equal(t, float64(8), records[0].Value)
	assert.Equal(t, float64(0), records[1].Value)
	assert.Equal(t, float64(6), records[2].Value)
	assert.Equal(t, 1, records[0].Peer)
	assert.Equal(t, 0, records[1].Peer)
	assert.Equal(t, trace.NoPeer, records[2].Peer)

	high, peer := trace.Unpack(records[0].Packed())
	assert.Equal(t, int64(8), high)
	assert.Equal(t, 1, peer)
}

func TestPortForwardsToQueue(t *testing.T) {
	task := trace.NewLine(1, trace.Task, nil)
	queue := trace.NewLine(2, trace.Queue, nil)
	port := trace.NewPort(3, nil, task, queue)
	require.Same(t, queue, port.Channel())

	port.Admit(trace.Start, 1, 2)
	assert.Equal(t, 0, port.Len())
	assert.Equal(t, 1, queue.Len())

	local := trace.NewPort(4, nil, task, nil)
	assert.Nil(t, local.Channel())
	local.Admit(trace.Event, 1, 42)
	local.Finalize(2)
	require.Equal(t, 2, local.Len())
	end, _ := local.At(1)
	assert.Equal(t, trace.End, end.Kind)
	assert.Equal(t, float64(42), end.Value)
}

func TestLifetimeValidation(t *testing.T) {
	line := trace.NewLine(1, trace.Task, nil)
	require.NoError(t, line.SetLifetime(trace.TimeRange{Start: 1, Finish: 5}))

	err := line.SetLifetime(trace.TimeRange{Start: 4, Finish: 2})
	var verr *trace.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "delete", verr.Bound)
	assert.Equal(t, trace.TimeRange{Start: 1, Finish: 5}, line.Lifetime())

	err = line.SetDeleted(0)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "delete", verr.Bound)

	err = line.SetCreated(6)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "create", verr.Bound)
	assert.Equal(t, trace.TimeRange{Start: 1, Finish: 5}, line.Lifetime())

	require.NoError(t, line.SetDeleted(9))
	require.NoError(t, line.SetCreated(6))
	assert.Equal(t, trace.TimeRange{Start: 6, Finish: 9}, line.Lifetime())
}

func TestNameAndVisibility(t *testing.T) {
	line := trace.NewLine(0x2a, trace.MemoryCounter, nil)
	assert.Equal(t, "MemCounter 0x2a", line.Name())
	line.SetName("dram")
	line.Finalize(1)
	assert.Equal(t, "dram", line.Name())

	assert.True(t, line.Visible())
	line.SetVisible(false)
	assert.False(t, line.Visible())
}
