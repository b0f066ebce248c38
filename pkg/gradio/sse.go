package gradio

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// sseEvent is one dispatched server-sent event.
type sseEvent struct {
	Name string
	Data string
}

// sseReader splits a text/event-stream body into events. Comment, id and
// retry lines are ignored; an event without data is never dispatched.
type sseReader struct {
	r *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader { return &sseReader{r: bufio.NewReader(r)} }

// Next returns the next event or io.EOF. A trailing event not terminated by a
// blank line is dropped.
func (s *sseReader) Next() (sseEvent, error) {
	var ev sseEvent
	var data []string
	for {
		line, err := s.r.ReadString('\n')
		if len(line) > 0 || err == nil {
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				if err == nil && len(data) > 0 {
					ev.Data = strings.Join(data, "\n")
					return ev, nil
				}
				ev, data = sseEvent{}, nil
			} else if !strings.HasPrefix(line, ":") {
				field, value, _ := strings.Cut(line, ":")
				value = strings.TrimPrefix(value, " ")
				switch field {
				case "data":
					data = append(data, value)
				case "event":
					ev.Name = value
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sseEvent{}, io.EOF
			}
			return sseEvent{}, err
		}
	}
}
