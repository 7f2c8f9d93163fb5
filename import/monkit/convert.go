package monkit

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracestat/import/internal/spans"
	"loov.dev/tracestat/trace"
)

// Error is the class of errors returned by this package.
var Error = errs.Tag("monkit")

type Options = spans.Options

// Load decodes a monkit span dump and converts it.
func Load(r io.Reader, opts Options) (*trace.Timeline, error) {
	var file File
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, Error.Wrap(err)
	}
	return Convert(opts, file)
}

// Convert turns every span into a bracket on the task line of its function.
// Each trace is treated as one process.
func Convert(opts Options, files ...File) (*trace.Timeline, error) {
	var all []spans.Span
	for i := range files {
		file := files[i]
		for k := range file {
			span := &file[k]

			converted := spans.Span{
				ID:      spanKey(span.Trace.ID, span.ID),
				Process: "trace " + strconv.FormatInt(int64(span.Trace.ID), 16),
				Name:    span.Func.Package + " " + span.Func.Name,
				Start:   span.Start.Time(),
				Finish:  span.Finish.Time(),
			}
			if span.ParentID != nil && TraceID(*span.ParentID) != span.Trace.ID {
				converted.Parent = spanKey(span.Trace.ID, *span.ParentID)
			}
			for _, annotation := range span.Annotations {
				converted.Notes = append(converted.Notes, spans.Note{
					Time: converted.Start,
					Text: annotation[0] + "=" + annotation[1],
				})
			}
			if span.Err != "" {
				converted.Notes = append(converted.Notes, spans.Note{
					Time: converted.Finish,
					Text: "error: " + span.Err,
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

func spanKey(traceID TraceID, spanID SpanID) string {
	return strconv.FormatInt(int64(traceID), 16) + "/" + strconv.FormatInt(int64(spanID), 16)
}
