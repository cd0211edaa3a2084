// Package sse incrementally decodes the server-sent-event stream produced by
// the chat-completions endpoint. It is fed raw byte chunks exactly as they
// arrive off the wire; chunk boundaries carry no meaning and may fall in the
// middle of a line, a JSON object, or a multi-byte rune.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// doneMarker is the literal payload closing a stream.
const doneMarker = "[DONE]"

var dataPrefix = []byte("data:")

// Delta is one incremental content fragment extracted from a stream event.
// It is consumed immediately by the caller and not retained.
type Delta struct {
	Content string
}

// MalformedChunkError reports a data: line whose payload is not valid JSON.
// The stream cannot be trusted past this point; the session carrying it
// must terminate.
type MalformedChunkError struct {
	Payload string
	Err     error
}

func (e *MalformedChunkError) Error() string {
	return fmt.Sprintf("malformed stream chunk %.120q: %v", e.Payload, e.Err)
}

func (e *MalformedChunkError) Unwrap() error { return e.Err }

// event mirrors the wire shape of one streamed completion chunk.
type event struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Parser reassembles complete data: lines from arbitrarily split chunks,
// buffering any trailing partial line until the rest of it arrives. The zero
// value is ready to use; a Parser serves exactly one stream unless Reset.
type Parser struct {
	buf  []byte
	done bool
}

// Feed consumes one byte chunk and returns the deltas completed by it, in
// arrival order. Lines without the data: prefix (comments, event fields,
// blanks) are skipped. A payload without a content fragment (e.g. the
// role-only opening event) is valid and yields nothing. Once the terminal
// marker has been seen, Feed returns nothing regardless of input.
//
// On a data: line that fails to parse, the deltas completed earlier in the
// same call are returned alongside a *MalformedChunkError so the caller can
// deliver them before failing.
func (p *Parser) Feed(chunk []byte) ([]Delta, error) {
	if p.done {
		return nil, nil
	}
	p.buf = append(p.buf, chunk...)

	var deltas []Delta
	for {
		nl := bytes.IndexByte(p.buf, '\n')
		if nl < 0 {
			return deltas, nil
		}
		line := bytes.TrimSuffix(p.buf[:nl], []byte{'\r'})
		p.buf = p.buf[nl+1:]

		payload, ok := bytes.CutPrefix(line, dataPrefix)
		if !ok {
			continue
		}
		payload = bytes.TrimSpace(payload)
		if len(payload) == 0 {
			continue
		}
		if string(payload) == doneMarker {
			p.done = true
			p.buf = nil
			return deltas, nil
		}

		var ev event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return deltas, &MalformedChunkError{Payload: string(payload), Err: err}
		}
		for _, c := range ev.Choices {
			if c.Delta.Content != "" {
				deltas = append(deltas, Delta{Content: c.Delta.Content})
			}
		}
	}
}

// Done reports whether the terminal marker has been consumed.
func (p *Parser) Done() bool { return p.done }

// Reset returns the parser to its zero state for a fresh stream.
func (p *Parser) Reset() {
	p.buf = nil
	p.done = false
}
