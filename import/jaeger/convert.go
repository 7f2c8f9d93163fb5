package jaeger

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/import/internal/spans"
	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("jaeger")

type Options = spans.Options

// Load decodes a Jaeger JSON export and converts it.
func Load(r io.Reader, opts Options) (*trace.Timeline, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, Error.Wrap(err)
	}
	return Convert(opts, file.Data...)
}

// Convert turns every span into a bracket on the task line of its service
// and operation. Child spans of the same service suspend their parent.
func Convert(opts Options, traces ...Trace) (*trace.Timeline, error) {
	var all []spans.Span
	for i := range traces {
		tr := &traces[i]
		for k := range tr.Spans {
			span := &tr.Spans[k]

			service := string(span.ProcessID)
			if process, ok := tr.Processes[span.ProcessID]; ok && process.ServiceName != "" {
				service = process.ServiceName
			}

			converted := spans.Span{
				ID:      spanKey(span.TraceSpanID),
				Process: service,
				Name:    span.OperationName,
				Start:   span.StartTime.Time(),
				Finish:  (span.StartTime + span.Duration).Time(),
			}
			for _, ref := range span.References {
				if ref.RefType == ChildOf {
					converted.Parent = spanKey(ref.TraceSpanID)
					break
				}
			}
			for _, log := range span.Logs {
				converted.Notes = append(converted.Notes, spans.Note{
					Time: log.Timestamp.Time(),
					Text: formatFields(log.Fields),
				})
			}
			all = append(all, converted)
		}
	}

	timeline, err := spans.Build(opts, all)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return timeline, nil
}

func spanKey(id TraceSpanID) string {
	return string(id.TraceID) + "/" + string(id.SpanID)
}

func formatFields(tags []Tag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, fmt.Sprintf("%s=%v", tag.Key, tag.Value))
	}
	return strings.Join(parts, " ")
}
