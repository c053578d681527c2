// Package stream implements the server side of the progress event transport:
// server-sent event framing over a long-lived HTTP response.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"storyboard/pkg/storyboard"
)

// ErrClientGone reports that the response writer rejected a write, which in
// practice means the client dropped the connection.
var ErrClientGone = errors.New("stream: client disconnected")

// Writer serializes progress events onto an HTTP response in emission order,
// flushing after every frame so the client sees each event as it happens.
// After the first failed write it becomes a no-op: a dropped consumer must
// never take the generation run down with it.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	dead    bool
}

// NewWriter prepares w for event streaming and emits the SSE headers.
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// Send writes one event frame. It reports ErrClientGone once the underlying
// connection is unusable; subsequent calls return the same error without
// touching the writer again.
func (s *Writer) Send(ev storyboard.Event) error {
	if s.dead {
		return ErrClientGone
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("stream: encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.dead = true
		return ErrClientGone
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
