package main

import (
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/clingy"
	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/config"
	"loov.dev/tracestat/import/auto"
	"loov.dev/tracestat/report"
	"loov.dev/tracestat/stats"
	"loov.dev/tracestat/trace"
)

// source holds the parameters shared by every command that reads a trace.
type source struct {
	path    string
	format  string
	config  string
	verbose bool
}

func (src *source) Setup(params clingy.Parameters) {
	src.format = params.Flag("format", "trace format: tef, jaeger, monkit or auto", "auto").(string)
	src.config = params.Flag("config", "defaults file", config.DefaultPath()).(string)
	src.verbose = params.Flag("verbose", "log import details", false,
		clingy.Short('v'),
		clingy.Transform(strconv.ParseBool), clingy.Boolean,
	).(bool)
	src.path = params.Arg("file", "trace file").(string)
}

func (src *source) load(ctx clingy.Context) (*trace.Timeline, *config.Config, error) {
	log := logrus.New()
	log.SetOutput(ctx.Stderr())
	if src.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	format, err := auto.ParseFormat(src.format)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(src.config)
	if err != nil {
		return nil, nil, err
	}

	timeline, err := auto.LoadFile(src.path, format, auto.Options{CPU: cfg.CPU, Log: log})
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{
		"cpus":  len(timeline.CPUs),
		"lines": len(timeline.Lines),
		"start": timeline.Start,
		"end":   timeline.Finish,
	}).Info("loaded trace")
	return timeline, cfg, nil
}

type cmdLines struct {
	source
}

func (cmd *cmdLines) Execute(ctx clingy.Context) error {
	timeline, _, err := cmd.load(ctx)
	if err != nil {
		return err
	}
	return report.Lines(ctx.Stdout(), timeline)
}

type cmdEvents struct {
	source
	line string
}

func (cmd *cmdEvents) Setup(params clingy.Parameters) {
	cmd.source.Setup(params)
	cmd.line = params.Arg("line", "name of the line").(string)
}

func (cmd *cmdEvents) Execute(ctx clingy.Context) error {
	timeline, _, err := cmd.load(ctx)
	if err != nil {
		return err
	}
	line := timeline.Find(cmd.line)
	if line == nil {
		return errs.Errorf("no line named %q", cmd.line)
	}
	return report.Records(ctx.Stdout(), line)
}

type cmdStats struct {
	source
	from string
	to   string
	task string
}

func (cmd *cmdStats) Setup(params clingy.Parameters) {
	cmd.from = params.Flag("from", "window start in seconds", "").(string)
	cmd.to = params.Flag("to", "window end in seconds", "").(string)
	cmd.task = params.Flag("task", "only report the line with this name", "").(string)
	cmd.source.Setup(params)
}

func (cmd *cmdStats) Execute(ctx clingy.Context) error {
	timeline, cfg, err := cmd.load(ctx)
	if err != nil {
		return err
	}

	window, err := cmd.window(cfg.Window)
	if err != nil {
		return err
	}
	window = window.Clip(timeline.TimeRange)
	if !window.IsValid() {
		return errs.Errorf("window %v..%v does not overlap the trace %v..%v",
			window.Start, window.Finish, timeline.Start, timeline.Finish)
	}

	if cmd.task != "" {
		line := timeline.Find(cmd.task)
		if line == nil {
			return errs.Errorf("no line named %q", cmd.task)
		}
		task := stats.NewTaskStatistic(timeline, line)
		task.Calculate(window)
		return report.Tree(ctx.Stdout(), task.Root())
	}

	ts := stats.NewTraceStatistic(timeline)
	ts.Calculate(window)
	if err := report.Tree(ctx.Stdout(), ts.Root()); err != nil {
		return err
	}
	return report.Loads(ctx.Stdout(), timeline, ts)
}

func (cmd *cmdStats) window(defaults trace.TimeRange) (trace.TimeRange, error) {
	window := defaults
	for _, bound := range []struct {
		flag string
		text string
		dst  *trace.Time
	}{
		{"from", cmd.from, &window.Start},
		{"to", cmd.to, &window.Finish},
	} {
		if bound.text == "" {
			continue
		}
		v, err := strconv.ParseFloat(bound.text, 64)
		if err != nil {
			return window, errs.Errorf("--%s: %w", bound.flag, err)
		}
		*bound.dst = trace.Time(v)
	}
	return window, nil
}
