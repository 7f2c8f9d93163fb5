// Package report renders timelines and statistics as aligned text.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/stats"
	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("report")

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func flush(tw *tabwriter.Writer) error {
	return Error.Wrap(tw.Flush())
}

// Duration formats t with the unit that suits it best.
func Duration(t trace.Time) string {
	if math.IsInf(float64(t), 0) || math.IsNaN(float64(t)) {
		return fmt.Sprint(float64(t))
	}
	return time.Duration(float64(t) * float64(time.Second)).String()
}

// Percent formats a ratio as a percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// Lines writes one row per line of timeline.
func Lines(w io.Writer, timeline *trace.Timeline) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CATEGORY\tID\tNAME\tCPU\tRECORDS\tSTART\tEND\tMAX DURATION\tMAX VALUE")
	for _, line := range timeline.Lines {
		cpu := "-"
		if line.CPU() != nil {
			cpu = line.CPU().Name
		}
		fmt.Fprintf(tw, "%v\t%d\t%s\t%s\t%d\t%s\t%s\t%s\t%g\n",
			line.Category(), line.ID(), line.Name(), cpu, line.Len(),
			Duration(line.StartTime()), Duration(line.EndTime()),
			Duration(line.MaxSampleDuration()), line.MaxSampleValue())
	}
	return flush(tw)
}

// Records writes the records of line with their annotations.
func Records(w io.Writer, line *trace.Line) error {
	return RecordsIn(w, line, trace.TimeRange{
		Start:  trace.Time(math.Inf(-1)),
		Finish: trace.Time(math.Inf(1)),
	})
}

// RecordsIn writes the records of line that fall inside span. Rows keep
// their index in the line.
func RecordsIn(w io.Writer, line *trace.Line, span trace.TimeRange) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tKIND\tTIME\tVALUE\tPEER\tNOTE")
	for i, r := range line.Records() {
		if !span.Contains(r.Time) {
			continue
		}
		peer := "-"
		if r.Peer != trace.NoPeer {
			peer = fmt.Sprint(r.Peer)
		}
		note := ""
		if text, ok := line.AnnotationTextAt(r.Time); ok && annotatedAt(line, r.Time) {
			note = strings.ReplaceAll(text, "\n", "; ")
		}
		fmt.Fprintf(tw, "%d\t%v\t%s\t%g\t%s\t%s\n", i, r.Kind, Duration(r.Time), r.Value, peer, note)
	}
	return flush(tw)
}

func annotatedAt(line *trace.Line, t trace.Time) bool {
	for _, a := range line.Annotations() {
		if a.Time == t {
			return true
		}
	}
	return false
}

// Tree writes the statistic tree below root, one node per row.
func Tree(w io.Writer, root stats.Node) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "NAME\tCOUNT\tTOTAL\tMIN\tAVG\tMAX\tLOAD\tDETAIL")
	root.Tree().Walk(root, func(n stats.Node, depth int) {
		name := strings.Repeat("  ", depth) + n.Name()
		fmt.Fprintf(tw, "%s\t%s\n", name, summary(n.Statistic()))
	})
	return flush(tw)
}

func summary(stat stats.Statistic) string {
	switch stat := stat.(type) {
	case *stats.TimeStatistic:
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t",
			stat.Count(), Duration(stat.Total()),
			Duration(stat.Min()), Duration(stat.Avg()), Duration(stat.Max()),
			Percent(stat.Load()))
	case *stats.InterruptStatistic:
		return fmt.Sprintf("%d\t%s\t\t\t\t%s\tinterrupts=%d nested=%d max/execution=%d",
			stat.Count(), Duration(stat.Time()), Percent(stat.Load()),
			stat.Interrupts(), stat.Nested(), stat.MaxPerExecution())
	case *stats.InterruptSourceStatistic:
		return fmt.Sprintf("%d\t%s\t\t\t\t%s\t",
			stat.Activations(), Duration(stat.Time()), Percent(stat.Load()))
	case *stats.CounterStatistic:
		return fmt.Sprintf("%d\t%g\t%g\t%g\t%g\t%g/s\tutilization=%s",
			stat.Count(), stat.Total(), stat.Min(), stat.Avg(), stat.Max(),
			stat.Load(), Percent(stat.Utilization()))
	case *stats.CounterRateStatistic:
		return fmt.Sprintf("\t%g\t\t\t\t%g/s\telapsed=%s utilization=%s",
			stat.Delta(), stat.Rate(), Duration(stat.Elapsed()), Percent(stat.Utilization()))
	default:
		return "\t\t\t\t\t\t"
	}
}

// Loads writes the summed exclusive task load of every CPU.
func Loads(w io.Writer, timeline *trace.Timeline, ts *stats.TraceStatistic) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CPU\tLOAD")
	for _, cpu := range timeline.CPUs {
		fmt.Fprintf(tw, "%s\t%s\n", cpu.Name, Percent(ts.Load(cpu)))
	}
	return flush(tw)
}
