package progrock

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vito/progrock"
)

var _ progrock.Writer = (*TraceWriter)(nil)

// TraceEntry is one line of a trace file.
type TraceEntry struct {
	Vertex string `json:"vertex"`
	Name   string `json:"name"`
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TraceWriter is a progrock.Writer that emits a JSON line for every completed vertex.
type TraceWriter struct {
	mu   sync.Mutex
	enc  *json.Encoder
	c    io.Closer
	done map[string]bool
}

// NewTraceWriter writes trace entries to w. w is closed with the writer when it is an io.Closer.
func NewTraceWriter(w io.Writer) *TraceWriter {
	tw := &TraceWriter{
		enc:  json.NewEncoder(w),
		done: make(map[string]bool),
	}
	if c, ok := w.(io.Closer); ok {
		tw.c = c
	}
	return tw
}

// WriteStatus records the vertices that completed in this update.
func (t *TraceWriter) WriteStatus(update *progrock.StatusUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, v := range update.Vertexes {
		if v.Internal || t.done[v.Id] || (v.Completed == nil && !v.Cached) {
			continue
		}
		t.done[v.Id] = true
		entry := TraceEntry{Vertex: v.Id, Name: v.Name, Cached: v.Cached}
		if v.Error != nil {
			entry.Error = *v.Error
		}
		if err := t.enc.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying writer.
func (t *TraceWriter) Close() error {
	if t.c != nil {
		return t.c.Close()
	}
	return nil
}
