package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracestat/report"
	"loov.dev/tracestat/stats"
	"loov.dev/tracestat/trace"
)

func scenario(t *testing.T) (*trace.Timeline, *trace.Line) {
	cpu := &trace.CPU{Name: "core0"}
	timeline := trace.NewTimeline()
	timeline.CPUs = append(timeline.CPUs, cpu)

	line := trace.NewLine(1, trace.Task, cpu)
	line.Admit(trace.Start, 0, 0)
	line.Admit(trace.Suspend, 2, 0)
	line.Admit(trace.Resume, 5, 0)
	line.Admit(trace.Stop, 10, 0)
	line.Annotate(trace.Annotation{Time: 2, Kind: trace.Text, Text: "preempted"})
	require.NoError(t, timeline.Add(line))

	timeline.Finalize(20)
	return timeline, line
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "1.5s", report.Duration(1.5))
	assert.Equal(t, "500ms", report.Duration(0.5))
	assert.Equal(t, "35.00%", report.Percent(0.35))
}

func TestLines(t *testing.T) {
	timeline, _ := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, report.Lines(&buf, timeline))

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Task", "1", "Task", "0x1", "core0", "5", "0s", "20s", "10s", "0"}, strings.Fields(rows[1]))
}

func TestRecords(t *testing.T) {
	_, line := scenario(t)

	var buf bytes.Buffer
	require.NoError(t, report.Records(&buf, line))

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"0", "Start", "0s", "0", "3"}, strings.Fields(rows[1]))
	assert.Equal(t, []string{"1", "Suspend", "2s", "0", "2", "preempted"}, strings.Fields(rows[2]))
	assert.Equal(t, []string{"4", "End", "20s", "0", "-"}, strings.Fields(rows[5]))
}

func TestTree(t *testing.T) {
	timeline, line := scenario(t)
	task := stats.NewTaskStatistic(timeline, line)
	task.Calculate(trace.TimeRange{Start: 0, Finish: 20})

	var buf bytes.Buffer
	require.NoError(t, report.Tree(&buf, task.Root()))

	out := buf.String()
	assert.Contains(t, out, "Task 0x1")
	assert.Contains(t, out, "interrupts=1 nested=0 max/execution=1")

	var exclusive []string
	for _, row := range strings.Split(out, "\n") {
		if strings.HasPrefix(strings.TrimSpace(row), "Exclusive") {
			exclusive = strings.Fields(row)
		}
	}
	assert.Equal(t, []string{"Exclusive", "1", "7s", "7s", "7s", "7s", "35.00%"}, exclusive)
}
