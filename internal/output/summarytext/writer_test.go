package summarytext

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proccount/pkg/models"
)

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteSummary(models.Summary{EventsProcessed: 12, ProcessNodesObserved: 5, UniqueIDsObserved: 4})
	require.NoError(t, err)
	assert.Equal(t, "12 Events Processed\n5 Process Nodes Observed\n4 Unique UUIDs Observed\n", buf.String())
}

func TestWriteSummaryZero(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteSummary(models.Summary{}))
	assert.Equal(t, "0 Events Processed\n0 Process Nodes Observed\n0 Unique UUIDs Observed\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestWriteSummaryPropagatesWriteErrors(t *testing.T) {
	err := NewWriter(failingWriter{}).WriteSummary(models.Summary{EventsProcessed: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed pipe")
}
