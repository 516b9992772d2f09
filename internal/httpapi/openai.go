package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aurora-relay/gateway/internal/apierrors"
	"github.com/aurora-relay/gateway/internal/dispatch"
	"github.com/aurora-relay/gateway/internal/monitor"
	"github.com/aurora-relay/gateway/internal/transform/openai"
)

// ChatCompletions handles POST /v1/chat/completions.
func (a *API) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "openai", apierrors.New(apierrors.KindParseFailure, http.StatusBadRequest, "failed to read request body"))
		return
	}

	var req openai.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, "openai", apierrors.Wrap(apierrors.KindParseFailure, http.StatusBadRequest, "invalid request body", err))
		return
	}

	if req.Stream {
		a.streamOpenAI(w, r, &req, start)
		return
	}
	a.unaryOpenAI(w, r, &req, start)
}

func (a *API) unaryOpenAI(w http.ResponseWriter, r *http.Request, req *openai.Request, start time.Time) {
	result, err := a.Dispatcher.Unary(r.Context(), req.Model, func() dispatch.UnaryTransformer {
		return openai.New(req)
	})
	entry := monitor.RequestLog{Dialect: "openai", Path: r.URL.Path, Model: req.Model, DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		entry.Status = apierrors.AsError(err).Status
		entry.Error = err.Error()
		a.logRequest(entry)
		writeError(w, "openai", err)
		return
	}

	respBytes, err := json.Marshal(result)
	if err != nil {
		entry.Status = http.StatusInternalServerError
		entry.Error = err.Error()
		a.logRequest(entry)
		writeError(w, "openai", apierrors.Wrap(apierrors.KindUpstreamError, http.StatusInternalServerError, "failed to encode response", err))
		return
	}

	entry.Status = http.StatusOK
	if resp, ok := result.(*openai.Response); ok && resp.Usage != nil {
		entry.InputTokens = resp.Usage.PromptTokens
		entry.OutputTokens = resp.Usage.CompletionTokens
	}
	a.logRequest(entry)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("openai-processing-ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	w.Write(respBytes)
}

func (a *API) streamOpenAI(w http.ResponseWriter, r *http.Request, req *openai.Request, start time.Time) {
	sink, ok := newHTTPSink(w)
	if !ok {
		writeError(w, "openai", apierrors.New(apierrors.KindUpstreamError, http.StatusInternalServerError, "streaming not supported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := a.Dispatcher.Stream(r.Context(), req.Model, func() dispatch.StreamTransformer {
		return openai.New(req)
	}, sink)

	entry := monitor.RequestLog{
		Dialect:    "openai",
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
		writeError(w, "openai", err)
		return
	}
	a.logRequest(entry)
}
