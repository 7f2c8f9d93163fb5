package auto_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracestat/import/auto"
	"loov.dev/tracestat/trace"
)

func TestDetectFormat(t *testing.T) {
	for input, want := range map[string]auto.Format{
		`{"traceEvents": []}`:                auto.TEF,
		` [{"ph": "B", "ts": 0}]`:            auto.TEF,
		`{"data": []}`:                       auto.Jaeger,
		`[{"id": 1, "func": {"name": "f"}}]`: auto.Monkit,
	} {
		got, err := auto.DetectFormat([]byte(input))
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	for _, input := range []string{"", "[]", `{"other": 1}`, "{"} {
		_, err := auto.DetectFormat([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := auto.ParseFormat("JAEGER")
	require.NoError(t, err)
	assert.Equal(t, auto.Jaeger, f)

	f, err = auto.ParseFormat("auto")
	require.NoError(t, err)
	assert.Equal(t, auto.Detect, f)

	_, err = auto.ParseFormat("pprof")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"ph": "X", "pid": 1, "tid": 1, "ts": 0, "dur": 1000000, "name": "main"}
	]`), 0o644))

	timeline, err := auto.LoadFile(path, auto.Detect, auto.Options{CPU: trace.CPU{ClockRate: 10}})
	require.NoError(t, err)
	require.NotNil(t, timeline.Find("1 main"))
	assert.Equal(t, 10.0, timeline.CPUs[0].ClockRate)
	assert.Equal(t, trace.TimeRange{Start: 0, Finish: 1}, timeline.TimeRange)

	_, err = auto.LoadFile(filepath.Join(t.TempDir(), "missing.json"), auto.Detect, auto.Options{})
	assert.Error(t, err)
}
