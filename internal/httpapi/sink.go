package httpapi

import "net/http"

// httpSink adapts an http.ResponseWriter (with its Flusher) into a
// dispatch.Sink so stream transformers can write dialect-framed records
// directly to the client connection.
type httpSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newHTTPSink(w http.ResponseWriter) (*httpSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &httpSink{w: w, flusher: flusher}, true
}

func (s *httpSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *httpSink) Flush() {
	s.flusher.Flush()
}
