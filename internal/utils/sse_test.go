package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)

	require.NoError(t, w.WriteJSON("progress", map[string]int{"progress": 40}))
	require.NoError(t, w.Close())

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: progress\ndata: {\"progress\":40}\n\ndata: [DONE]\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSSEWriter_MultilineAndComment(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)

	require.NoError(t, w.Comment("ping"))
	require.NoError(t, w.Write("log", "line one\nline two"))

	assert.Equal(t, ": ping\n\nevent: log\ndata: line one\ndata: line two\n\n", rec.Body.String())
}

func TestSSEWriter_WriteAfterClose(t *testing.T) {
	w := NewSSEWriter(httptest.NewRecorder())
	require.NoError(t, w.Close())

	assert.ErrorIs(t, w.Write("progress", "{}"), ErrStreamClosed)
	assert.ErrorIs(t, w.Comment("ping"), ErrStreamClosed)
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(0)
	assert.NotNil(t, c.Transport)
}
