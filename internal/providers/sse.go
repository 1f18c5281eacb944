package providers

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one decoded Server-Sent Events frame: the concatenated "data:"
// lines, ignoring "event:"/"id:"/comment fields the chat-completions and
// messages streaming wire formats don't use.
type sseEvent struct {
	Data string
}

// sseReader scans an upstream streaming response body into sseEvent frames,
// the minimal subset of the SSE spec the OpenAI/Anthropic streaming APIs
// rely on: one or more "data: ..." lines per frame, frames separated by a
// blank line.
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseReader{scanner: scanner}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (s *sseReader) Next() (sseEvent, error) {
	var data []string
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if len(data) == 0 {
				continue
			}
			return sseEvent{Data: strings.Join(data, "\n")}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue // comment/heartbeat
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(payload, " "))
		}
	}
	if len(data) > 0 {
		return sseEvent{Data: strings.Join(data, "\n")}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return sseEvent{}, err
	}
	return sseEvent{}, io.EOF
}
