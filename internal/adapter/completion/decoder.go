package completion

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// maxFrameSize bounds a single event-stream line so a misbehaving upstream
// cannot grow the scanner buffer without limit.
const maxFrameSize = 1 << 20

const doneSentinel = "[DONE]"

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// frameDecoder reads "data:" lines from an event-stream body and extracts
// the content delta from each JSON frame.
type frameDecoder struct {
	scanner  *bufio.Scanner
	finished bool
}

func newFrameDecoder(r io.Reader) *frameDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return &frameDecoder{scanner: scanner}
}

// next returns the content of the next data frame. Frames with no content
// delta yield an empty string. It returns io.EOF at a finish_reason, at the
// done sentinel, or when the body is drained.
func (d *frameDecoder) next() (string, error) {
	if d.finished {
		return "", io.EOF
	}
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == doneSentinel {
			return "", io.EOF
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed completion frame", "error", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			// Terminal frame. Some upstreams hold the connection open after
			// finishing, so do not wait for the sentinel or body drain.
			d.finished = true
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
			return "", io.EOF
		}
		return choice.Delta.Content, nil
	}

	if err := d.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
