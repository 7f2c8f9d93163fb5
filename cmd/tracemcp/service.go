package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/config"
	"loov.dev/tracestat/import/auto"
	"loov.dev/tracestat/report"
	"loov.dev/tracestat/stats"
	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by the service.
var Error = errs.Tag("tracemcp")

// service caches loaded timelines by path.
type service struct {
	log    logrus.FieldLogger
	config *config.Config

	mu        sync.Mutex
	timelines map[string]*trace.Timeline
}

func newService(log logrus.FieldLogger, cfg *config.Config) *service {
	return &service{
		log:       log,
		config:    cfg,
		timelines: make(map[string]*trace.Timeline),
	}
}

func (svc *service) load(path, format string) (string, error) {
	f, err := auto.ParseFormat(format)
	if err != nil {
		return "", err
	}
	timeline, err := auto.LoadFile(path, f, auto.Options{CPU: svc.config.CPU, Log: svc.log})
	if err != nil {
		return "", err
	}

	svc.mu.Lock()
	svc.timelines[path] = timeline
	svc.mu.Unlock()

	counts := make(map[trace.Category]int)
	for _, line := range timeline.Lines {
		counts[line.Category()]++
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trace loaded: %s\n\n", path)
	fmt.Fprintf(&sb, "Span: %s .. %s (%s)\n", report.Duration(timeline.Start), report.Duration(timeline.Finish), report.Duration(timeline.Duration()))
	fmt.Fprintf(&sb, "CPUs: %d\n", len(timeline.CPUs))
	fmt.Fprintf(&sb, "Lines: %d\n", len(timeline.Lines))
	for _, category := range trace.Categories() {
		if n := counts[category]; n > 0 {
			fmt.Fprintf(&sb, "  %v: %d\n", category, n)
		}
	}
	return sb.String(), nil
}

func (svc *service) timeline(path string) (*trace.Timeline, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	timeline, ok := svc.timelines[path]
	if !ok {
		return nil, Error.Errorf("trace %q not loaded, use load_trace first", path)
	}
	return timeline, nil
}

func (svc *service) line(path, name string) (*trace.Timeline, *trace.Line, error) {
	timeline, err := svc.timeline(path)
	if err != nil {
		return nil, nil, err
	}
	line := timeline.Find(name)
	if line == nil {
		return nil, nil, Error.Errorf("no line named %q", name)
	}
	return timeline, line, nil
}

func (svc *service) lines(path string) (string, error) {
	timeline, err := svc.timeline(path)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := report.Lines(&sb, timeline); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (svc *service) events(path, name string, from, to trace.Time) (string, error) {
	_, line, err := svc.line(path, name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%v), %d records\n\n", line.Name(), line.Category(), line.Len())
	if err := report.RecordsIn(&sb, line, trace.TimeRange{Start: from, Finish: to}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (svc *service) taskStatistics(path, name string, window trace.TimeRange) (string, error) {
	timeline, line, err := svc.line(path, name)
	if err != nil {
		return "", err
	}
	window, err = clipWindow(timeline, window)
	if err != nil {
		return "", err
	}

	task := stats.NewTaskStatistic(timeline, line)
	task.Calculate(window)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Window: %s .. %s\n\n", report.Duration(window.Start), report.Duration(window.Finish))
	if err := report.Tree(&sb, task.Root()); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (svc *service) traceStatistics(path string, window trace.TimeRange) (string, error) {
	timeline, err := svc.timeline(path)
	if err != nil {
		return "", err
	}
	window, err = clipWindow(timeline, window)
	if err != nil {
		return "", err
	}

	ts := stats.NewTraceStatistic(timeline)
	ts.Calculate(window)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Window: %s .. %s\n\n", report.Duration(window.Start), report.Duration(window.Finish))
	if err := report.Tree(&sb, ts.Root()); err != nil {
		return "", err
	}
	sb.WriteString("\n")
	if err := report.Loads(&sb, timeline, ts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (svc *service) annotationAt(path, name string, t trace.Time) (string, error) {
	_, line, err := svc.line(path, name)
	if err != nil {
		return "", err
	}
	text, ok := line.AnnotationTextAt(t)
	if !ok {
		return fmt.Sprintf("no annotation at or after %s", report.Duration(t)), nil
	}
	return text, nil
}

func clipWindow(timeline *trace.Timeline, window trace.TimeRange) (trace.TimeRange, error) {
	clipped := window.Clip(timeline.TimeRange)
	if !clipped.IsValid() {
		return clipped, Error.Errorf("window %s .. %s does not overlap the trace",
			report.Duration(window.Start), report.Duration(window.Finish))
	}
	return clipped, nil
}
