// Package sse implements the SSE Framer (C9): a stateful line-oriented
// splitter that turns an incoming byte stream into a sequence of `data:`
// payloads, independent of how the stream is chunked by the transport.
package sse

import "strings"

const (
	dataPrefix  = "data: "
	doneMarker  = "[DONE]"
	doneLiteral = dataPrefix + doneMarker
)

// Framer accumulates bytes across chunk boundaries and yields completed
// `data:` records. It is not safe for concurrent use — one Framer per
// in-flight stream, matching the single-threaded-per-stream ordering
// guarantee in spec §5.
type Framer struct {
	buf strings.Builder
}

// New creates an empty Framer.
func New() *Framer {
	return &Framer{}
}

// Feed appends a chunk of raw upstream bytes and returns every payload
// completed by this call, in order. A payload is the text after "data: "
// on a line, trimmed; empty payloads and the literal "[DONE]" sentinel are
// dropped. Partial trailing lines are retained for the next Feed.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf.WriteString(string(chunk))
	full := f.buf.String()

	lastNewline := strings.LastIndexByte(full, '\n')
	if lastNewline < 0 {
		// No complete line yet; keep buffering.
		return nil
	}

	complete := full[:lastNewline]
	remainder := full[lastNewline+1:]

	f.buf.Reset()
	f.buf.WriteString(remainder)

	var payloads []string
	for _, line := range strings.Split(complete, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == "" || payload == doneMarker {
			continue
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

// SawDone reports whether a raw chunk's textual form contains the
// `data: [DONE]` sentinel, independent of Feed's line-buffering.
func SawDone(chunk []byte) bool {
	return strings.Contains(string(chunk), doneLiteral)
}

// Reset clears the framer's partial-line buffer.
func (f *Framer) Reset() {
	f.buf.Reset()
}
