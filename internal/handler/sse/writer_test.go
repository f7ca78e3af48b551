package sse

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterEventFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Event("progress", map[string]any{"percent": 50}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "event: progress\ndata: {\"percent\":50}\n\n", rec.Body.String())
}

func TestWriterSerializesConcurrentWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	// Event and keep-alive writers run on separate goroutines sharing
	// one connection; frames must come out whole, never interleaved
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = w.Event("progress", map[string]any{"percent": i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = w.WriteKeepAlive()
		}
	}()
	wg.Wait()

	events, keepalives := 0, 0
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		switch {
		case line == "":
		case line == ": keepalive":
			keepalives++
		case strings.HasPrefix(line, "event: progress"):
			events++
		case strings.HasPrefix(line, "data: {\"percent\":"):
		default:
			t.Fatalf("malformed frame line %q", line)
		}
	}
	assert.Equal(t, 100, events)
	assert.Equal(t, 100, keepalives)
}
