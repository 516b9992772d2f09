package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aurora-relay/gateway/internal/apierrors"
	"github.com/aurora-relay/gateway/internal/dispatch"
	"github.com/aurora-relay/gateway/internal/monitor"
	"github.com/aurora-relay/gateway/internal/transform/anthropic"
)

// Messages handles POST /v1/messages.
func (a *API) Messages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "anthropic", apierrors.New(apierrors.KindParseFailure, http.StatusBadRequest, "failed to read request body"))
		return
	}

	var req anthropic.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, "anthropic", apierrors.Wrap(apierrors.KindParseFailure, http.StatusBadRequest, "invalid request body", err))
		return
	}

	if req.Stream {
		a.streamAnthropic(w, r, &req, start)
		return
	}
	a.unaryAnthropic(w, r, &req, start)
}

func (a *API) unaryAnthropic(w http.ResponseWriter, r *http.Request, req *anthropic.Request, start time.Time) {
	result, err := a.Dispatcher.Unary(r.Context(), req.Model, func() dispatch.UnaryTransformer {
		return anthropic.New(req)
	})
	entry := monitor.RequestLog{Dialect: "anthropic", Path: r.URL.Path, Model: req.Model, DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		entry.Status = apierrors.AsError(err).Status
		entry.Error = err.Error()
		a.logRequest(entry)
		writeError(w, "anthropic", err)
		return
	}

	respBytes, err := json.Marshal(result)
	if err != nil {
		entry.Status = http.StatusInternalServerError
		entry.Error = err.Error()
		a.logRequest(entry)
		writeError(w, "anthropic", apierrors.Wrap(apierrors.KindUpstreamError, http.StatusInternalServerError, "failed to encode response", err))
		return
	}

	entry.Status = http.StatusOK
	if resp, ok := result.(*anthropic.Response); ok {
		entry.InputTokens = resp.Usage.InputTokens
		entry.OutputTokens = resp.Usage.OutputTokens
	}
	a.logRequest(entry)

	w.Header().Set("Content-Type", "application/json")
	w.Write(respBytes)
}

func (a *API) streamAnthropic(w http.ResponseWriter, r *http.Request, req *anthropic.Request, start time.Time) {
	sink, ok := newHTTPSink(w)
	if !ok {
		writeError(w, "anthropic", apierrors.New(apierrors.KindUpstreamError, http.StatusInternalServerError, "streaming not supported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := a.Dispatcher.Stream(r.Context(), req.Model, func() dispatch.StreamTransformer {
		return anthropic.New(req)
	}, sink)

	entry := monitor.RequestLog{
		Dialect:    "anthropic",
		Path:       r.URL.Path,
		Model:      req.Model,
		Streaming:  true,
		DurationMS: time.Since(start).Milliseconds(),
		Status:     http.StatusOK,
	}
	if err != nil {
		apiErr := apierrors.AsError(err)
		entry.Status = apiErr.Status
		entry.Error = err.Error()
		a.logRequest(entry)
		writeError(w, "anthropic", err)
		return
	}
	a.logRequest(entry)
}
