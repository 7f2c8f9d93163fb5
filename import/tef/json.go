package tef

// This package implements
// https://docs.google.com/document/d/1CvAClvFfyA5R-PhYUmn5OOQtYMH4h6I0nSsKchNAySU/preview?tab=t.0#heading=h.yr4qxyxotyw

import (
	"bytes"
	"encoding/json"

	"loov.dev/tracestat/trace"
)

/*
{
  "traceEvents": [
    {"name": "Asub", "cat": "PERF", "ph": "B", "pid": 22630, "tid": 22630, "ts": 829},
    {"name": "Asub", "cat": "PERF", "ph": "E", "pid": 22630, "tid": 22630, "ts": 833}
  ],
  "displayTimeUnit": "ns"
}
*/

// File is a trace event file. Only the events are read; stack frames,
// samples and metadata properties are ignored.
type File struct {
	TraceEvents []Event `json:"traceEvents"`
}

// UnmarshalJSON accepts both the object format and the array format, which
// is a bare list of events.
func (file *File) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		*file = File{}
		return json.Unmarshal(trimmed, &file.TraceEvents)
	}
	type object File
	return json.Unmarshal(data, (*object)(file))
}

/*
{
  "name": "myName",
  "cat": "category,list",
  "ph": "B",
  "ts": 12345,
  "pid": 123,
  "tid": 456,
  "args": {
    "someArg": 1,
    "anotherArg": {
      "value": "my value"
    }
  }
}
*/

type Event struct {
	// The name of the event, as displayed in Trace Viewer
	Name string `json:"name"`
	// The event categories. This is a comma separated list of categories for the event.
	// The categories can be used to hide events in the Trace Viewer UI.
	Category string `json:"cat"`
	// The event type. This is a single character which changes depending on the type of
	// event being output. The valid values are listed in the table below. We will discuss each phase type below.
	Phase Phase `json:"ph"`
	// The tracing clock timestamp of the event. The timestamps are provided at microsecond granularity.
	Timestamp float64 `json:"ts"`
	// The process ID for the process that output this event.
	ProcessID int64 `json:"pid"`
	// The thread ID for the thread that output this event.
	ThreadID int64 `json:"tid"`

	// Any arguments provided for the event. Some of the event types have required argument fields,
	// otherwise, you can put any information you wish in here. The arguments are displayed in
	// Trace Viewer when you view an event in the analysis section.
	Args map[string]any `json:"args"`

	// Duration specifies the duration for Complete events.
	Duration float64 `json:"dur,omitzero"`
}

// Time converts the microsecond timestamp.
func (ev *Event) Time() trace.Time { return micros(ev.Timestamp) }

func micros(v float64) trace.Time { return trace.Time(v / 1e6) }

type Phase string

const (
	DurationBegin Phase = "B"
	DurationEnd   Phase = "E"
	Complete      Phase = "X"
	Instant       Phase = "i"
	GlobalInstant Phase = "I"
	Counter       Phase = "C"

	AsyncStart   Phase = "b"
	AsyncInstant Phase = "n"
	AsyncEnd     Phase = "e"

	DeprecatedAsyncStart    Phase = "S"
	DeprecatedAsyncStepInto Phase = "T"
	DeprecatedAsyncPast     Phase = "p"
	DeprecatedAsyncEnd      Phase = "F"

	FlowStart Phase = "s"
	FlowStep  Phase = "t"
	FlowEnd   Phase = "f"

	ObjectCreated   Phase = "N"
	ObjectSnapshot  Phase = "O"
	ObjectDestroyed Phase = "D"

	Metadata Phase = "M"

	MemoryDumpGlobal  Phase = "V"
	MemoryDumpProcess Phase = "v"

	Mark Phase = "R"

	ClockSync Phase = "c"
	Context   Phase = ","
)
