package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proccount/internal/graph/process"
	"proccount/internal/input/stream"
	"proccount/internal/logger"
	"proccount/internal/metrics"
	"proccount/pkg/models"
)

type recordingWriter struct {
	calls   int
	summary models.Summary
	err     error
}

func (w *recordingWriter) WriteSummary(s models.Summary) error {
	w.calls++
	w.summary = s
	return w.err
}

func run(t *testing.T, input string, opts Options) (*recordingWriter, models.Summary, error) {
	t.Helper()
	src, err := stream.NewReader(strings.NewReader(input), stream.Config{})
	require.NoError(t, err)

	w := &recordingWriter{}
	summary, err := NewStreamPipeline(src, process.NewCounter(), w, opts).Run()
	return w, summary, err
}

func TestRunScenarios(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  models.Summary
	}{
		{
			name:  "empty stream",
			input: "",
			want:  models.Summary{},
		},
		{
			name:  "single clone",
			input: `{"subjprocuuid":"p1","event":"audit:event:aue_clone:"}`,
			want:  models.Summary{EventsProcessed: 1, ProcessNodesObserved: 1, UniqueIDsObserved: 1},
		},
		{
			name: "execve after first sighting",
			input: `{"subjprocuuid":"p1","event":"x"}
{"subjprocuuid":"p1","event":"audit:event:aue_execve:"}`,
			want: models.Summary{EventsProcessed: 2, ProcessNodesObserved: 2, UniqueIDsObserved: 1},
		},
		{
			name:  "fork creates child",
			input: `{"subjprocuuid":"p1","event":"audit:event:aue_fork:","ret_objuuid1":"p2"}`,
			want:  models.Summary{EventsProcessed: 1, ProcessNodesObserved: 2, UniqueIDsObserved: 2},
		},
		{
			name: "fork to known child",
			input: `{"subjprocuuid":"p1","event":"x"}{"subjprocuuid":"p2","event":"x"}
{"subjprocuuid":"p1","event":"audit:event:aue_vfork:","ret_objuuid1":"p2"}`,
			want: models.Summary{EventsProcessed: 3, ProcessNodesObserved: 2, UniqueIDsObserved: 2},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, got, err := run(t, tc.input, Options{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, 1, w.calls)
			assert.Equal(t, tc.want, w.summary)
		})
	}
}

func TestRunFailsFastWithoutSummary(t *testing.T) {
	cases := []struct {
		name  string
		input string
		class error
	}{
		{"missing subject", `{"subjprocuuid":"p1","event":"x"}` + "\n" + `{"event":"x"}`, models.ErrSchema},
		{"fork without child", `{"subjprocuuid":"p1","event":"audit:event:aue_fork:"}`, models.ErrSchema},
		{"broken json", `{"subjprocuuid":"p1","event":"x"}` + "\n" + `{"subjprocuuid":`, models.ErrParse},
		{"array record", `[{"subjprocuuid":"p1","event":"x"}]`, models.ErrSchema},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, got, err := run(t, tc.input, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.class)
			assert.Equal(t, models.Summary{}, got)
			assert.Equal(t, 0, w.calls)
		})
	}
}

func TestRunSchemaErrorNamesRecord(t *testing.T) {
	_, _, err := run(t, `{"subjprocuuid":"p1","event":"x"} {"subjprocuuid":"p1"}`, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
}

func TestRunReturnsWriterError(t *testing.T) {
	src, err := stream.NewReader(strings.NewReader(`{"subjprocuuid":"p1","event":"x"}`), stream.Config{})
	require.NoError(t, err)

	w := &recordingWriter{err: errors.New("stdout closed")}
	summary, err := NewStreamPipeline(src, nil, w, Options{}).Run()
	require.Error(t, err)
	assert.Equal(t, int64(1), summary.EventsProcessed)
}

func TestRunLogsProgress(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Enabled: true, Level: "info", Format: "json", Writer: &buf}))
	t.Cleanup(func() { _ = logger.Init(logger.Options{}) })

	input := strings.Repeat(`{"subjprocuuid":"p1","event":"x"}`+"\n", 5)
	_, got, err := run(t, input, Options{ProgressEvery: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.EventsProcessed)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "Progress: events="))
	assert.Contains(t, out, "Progress: events=4 nodes=1 unique_ids=1")
	assert.Contains(t, out, "Stream pipeline finished: events=5")
}

func TestRunMirrorsMetrics(t *testing.T) {
	m := metrics.New()
	input := `{"subjprocuuid":"p1","event":"audit:event:aue_fork:","ret_objuuid1":"p2"}
{"subjprocuuid":"p2","event":"audit:event:aue_execve:"}
{"subjprocuuid":"p2","event":"audit:event:aue_execve:"}
`
	_, got, err := run(t, input, Options{Metrics: m})
	require.NoError(t, err)
	assert.Equal(t, models.Summary{EventsProcessed: 3, ProcessNodesObserved: 3, UniqueIDsObserved: 2}, got)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		metric := mf.GetMetric()[0]
		if c := metric.GetCounter(); c != nil {
			values[mf.GetName()] = c.GetValue()
		} else if g := metric.GetGauge(); g != nil {
			values[mf.GetName()] = g.GetValue()
		}
	}
	assert.Equal(t, 3.0, values["proccount_events_processed_total"])
	assert.Equal(t, 3.0, values["proccount_process_nodes_observed_total"])
	assert.Equal(t, 2.0, values["proccount_unique_ids_observed"])
	assert.Equal(t, float64(len(input)), values["proccount_input_bytes_read_total"])
}
