package storyboard

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// framePrefix marks a line carrying an event payload, per SSE text framing.
const framePrefix = "data: "

// Decoder incrementally decodes progress events from a server-sent event
// stream. It buffers across reads, so a frame split between two underlying
// chunks is reassembled transparently. Lines without the frame prefix and
// frames whose payload fails to decode are skipped rather than treated as
// fatal.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r for event decoding.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next decoded event in stream order. It returns io.EOF once
// the stream is exhausted.
func (d *Decoder) Next() (Event, error) {
	for {
		line, err := d.r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, framePrefix) {
			payload := line[len(framePrefix):]
			var ev Event
			if jsonErr := json.Unmarshal([]byte(payload), &ev); jsonErr == nil {
				return ev, nil
			}
		}
		if err != nil {
			return Event{}, err
		}
	}
}
