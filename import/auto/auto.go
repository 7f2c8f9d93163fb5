// Package auto loads a trace file in any of the supported formats.
package auto

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/import/internal/spans"
	"loov.dev/tracestat/import/jaeger"
	"loov.dev/tracestat/import/monkit"
	"loov.dev/tracestat/import/tef"
	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("import")

// Format names a trace file format.
type Format string

const (
	Detect Format = ""
	TEF    Format = "tef"
	Jaeger Format = "jaeger"
	Monkit Format = "monkit"
)

// Formats lists the formats that can be requested explicitly.
func Formats() []Format { return []Format{TEF, Jaeger, Monkit} }

// ParseFormat validates a format name; "" and "auto" select detection.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Detect, "auto":
		return Detect, nil
	case TEF, Jaeger, Monkit:
		return f, nil
	default:
		return Detect, Error.Errorf("unknown format %q", s)
	}
}

// Options configures an import.
type Options struct {
	// CPU is the template for the CPU of every process.
	CPU trace.CPU
	Log logrus.FieldLogger
}

// DetectFormat guesses the format of data from its top level shape.
func DetectFormat(data []byte) (Format, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Detect, Error.Errorf("empty input")
	}

	switch data[0] {
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return Detect, Error.Wrap(err)
		}
		if _, ok := fields["traceEvents"]; ok {
			return TEF, nil
		}
		if _, ok := fields["data"]; ok {
			return Jaeger, nil
		}
	case '[':
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return Detect, Error.Wrap(err)
		}
		if len(items) > 0 {
			if _, ok := items[0]["ph"]; ok {
				return TEF, nil
			}
			if _, ok := items[0]["func"]; ok {
				return Monkit, nil
			}
		}
	}
	return Detect, Error.Errorf("unable to detect format")
}

// Decode converts data in the given format, detecting it when format is Detect.
func Decode(data []byte, format Format, opts Options) (*trace.Timeline, error) {
	if format == Detect {
		var err error
		format, err = DetectFormat(data)
		if err != nil {
			return nil, err
		}
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("format", format).Debug("decoding trace")

	r := bytes.NewReader(data)
	switch format {
	case TEF:
		return tef.Load(r, tef.Options{CPU: opts.CPU, Log: log})
	case Jaeger:
		return jaeger.Load(r, spans.Options{CPU: opts.CPU, Log: log})
	case Monkit:
		return monkit.Load(r, spans.Options{CPU: opts.CPU, Log: log})
	default:
		return nil, Error.Errorf("unknown format %q", format)
	}
}

// LoadFile reads and converts the trace at path.
func LoadFile(path string, format Format, opts Options) (*trace.Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	timeline, err := Decode(data, format, opts)
	if err != nil {
		return nil, Error.Errorf("%s: %w", path, err)
	}
	return timeline, nil
}
