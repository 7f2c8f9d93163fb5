// Package config reads the defaults for tracestat from an ini file.
//
// The file looks like:
//
//	[cpu]
//	name = core0
//	clock-rate = 200e6
//	mem-clock-rate = 100e6
//
//	[window]
//	from = 0.5
//	to = 1.5
//
// Values may reference environment variables as $NAME.
package config

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	ini "github.com/lars-t-hansen/ini"
	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("config")

// Config holds the defaults applied to every imported trace.
type Config struct {
	// CPU is the template for the CPUs created by the importers.
	CPU trace.CPU
	// Window bounds the statistics. Unset sides are infinite.
	Window trace.TimeRange
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		Window: trace.TimeRange{
			Start:  trace.Time(math.Inf(-1)),
			Finish: trace.Time(math.Inf(1)),
		},
	}
}

// DefaultPath returns $HOME/.tracestat, or "" when HOME is not set.
func DefaultPath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(filepath.Clean(home), ".tracestat")
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	input, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, Error.Wrap(err)
	}
	defer func() { _ = input.Close() }()

	cfg, err := Parse(input)
	if err != nil {
		return nil, Error.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

type fields struct {
	parser *ini.Parser

	cpuName      *ini.Field
	clockRate    *ini.Field
	memClockRate *ini.Field

	from *ini.Field
	to   *ini.Field
}

func newFields() *fields {
	f := &fields{parser: ini.NewParser()}

	cpu := f.parser.AddSection("cpu")
	f.cpuName = cpu.AddString("name")
	f.clockRate = cpu.AddString("clock-rate")
	f.memClockRate = cpu.AddString("mem-clock-rate")

	window := f.parser.AddSection("window")
	f.from = window.AddString("from")
	f.to = window.AddString("to")
	return f
}

// Parse reads a configuration from r.
func Parse(r io.Reader) (*Config, error) {
	f := newFields()
	store, err := f.parser.Parse(r)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	cfg := Default()
	if s, ok := value(store, f.cpuName); ok {
		cfg.CPU.Name = s
	}

	for _, num := range []struct {
		name  string
		field *ini.Field
		dst   *float64
	}{
		{"cpu.clock-rate", f.clockRate, &cfg.CPU.ClockRate},
		{"cpu.mem-clock-rate", f.memClockRate, &cfg.CPU.MemClockRate},
		{"window.from", f.from, (*float64)(&cfg.Window.Start)},
		{"window.to", f.to, (*float64)(&cfg.Window.Finish)},
	} {
		s, ok := value(store, num.field)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, Error.Errorf("%s: %w", num.name, err)
		}
		*num.dst = v
	}

	if cfg.CPU.ClockRate < 0 || cfg.CPU.MemClockRate < 0 {
		return nil, Error.Errorf("negative clock rate")
	}
	if !cfg.Window.IsValid() {
		return nil, Error.Errorf("window ends before it starts")
	}
	return cfg, nil
}

func value(store *ini.Store, f *ini.Field) (string, bool) {
	if !f.Present(store) {
		return "", false
	}
	return os.ExpandEnv(f.StringVal(store)), true
}
