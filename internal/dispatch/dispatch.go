// Package dispatch implements the Dispatcher (C7): executes a logical
// request against the account pool with at-most-N account failovers,
// uniform for unary and streaming requests.
package dispatch

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/aurora-relay/gateway/internal/accounts"
	"github.com/aurora-relay/gateway/internal/apierrors"
	"github.com/aurora-relay/gateway/internal/sse"
)

// Store is the account-pool slice the Dispatcher needs.
type Store interface {
	MarkSuccess(id string)
	MarkCooldown(id string)
	Len() int
	EarliestCooldownEnd() (time.Time, bool)
}

// Selector picks the best ready account for a model.
type Selector interface {
	Pick(model string) (accounts.Snapshot, bool)
}

// Resolver resolves a project id for an account.
type Resolver interface {
	Resolve(ctx context.Context, accountID string) string
}

// Transport performs the actual upstream HTTP calls.
type Transport interface {
	PostJSON(ctx context.Context, accountID, path string, body []byte) ([]byte, error)
	PostStream(ctx context.Context, accountID, path string, body []byte) (Response, error)
}

// Response is the subset of *http.Response the Dispatcher needs from a
// streaming upstream call.
type Response interface {
	Body() io.ReadCloser
}

// UnaryTransformer produces one upstream request and parses one upstream
// response for a single dialect (C10/C11 unary paths).
type UnaryTransformer interface {
	ToUpstream(project string) ([]byte, error)
	FromUpstream(body []byte) (interface{}, error)
}

// StreamTransformer drives the streaming accumulator for a single dialect.
// A fresh instance is created per dispatch attempt so pre-header failover
// never leaks partial accumulator state.
type StreamTransformer interface {
	ToUpstream(project string) ([]byte, error)
	// HandleChunk consumes one SSE `data:` payload and writes zero or more
	// dialect-framed records to sink.
	HandleChunk(payload []byte, sink Sink) error
	// Finalize is called once after the upstream stream ends, to synthesize
	// a closing sequence if HandleChunk never observed a usage-bearing chunk.
	Finalize(sink Sink) error
}

// Sink is where a StreamTransformer writes dialect-framed output.
type Sink interface {
	io.Writer
	Flush()
}

// Dispatcher is the Dispatcher (C7).
type Dispatcher struct {
	store     Store
	selector  Selector
	resolver  Resolver
	transport Transport
	maxRetry  int
}

// New creates a Dispatcher. maxRetry is MAX_RETRY_ACCOUNTS from config.
func New(store Store, selector Selector, resolver Resolver, transport Transport, maxRetry int) *Dispatcher {
	if maxRetry < 1 {
		maxRetry = 3
	}
	return &Dispatcher{store: store, selector: selector, resolver: resolver, transport: transport, maxRetry: maxRetry}
}

func (d *Dispatcher) attempts() int {
	n := d.maxRetry
	if pool := d.store.Len(); pool > 0 && pool < n {
		n = pool
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (d *Dispatcher) retryAfterSeconds() int {
	end, ok := d.store.EarliestCooldownEnd()
	if !ok {
		return 60
	}
	secs := int(math.Ceil(time.Until(end).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Unary executes newTransformer's request against the pool with failover on
// 429, returning the translated client response.
func (d *Dispatcher) Unary(ctx context.Context, model string, newTransformer func() UnaryTransformer) (interface{}, error) {
	for i := 0; i < d.attempts(); i++ {
		acct, ok := d.selector.Pick(model)
		if !ok {
			return nil, apierrors.RateLimitExhausted(d.retryAfterSeconds())
		}

		transformer := newTransformer()
		project := d.resolver.Resolve(ctx, acct.ID)
		body, err := transformer.ToUpstream(project)
		if err != nil {
			return nil, err
		}

		respBody, err := d.transport.PostJSON(ctx, acct.ID, ":generateContent", body)
		if err != nil {
			if apiErr := apierrors.AsError(err); apiErr.Kind == apierrors.KindRateLimited {
				d.store.MarkCooldown(acct.ID)
				continue
			}
			return nil, err
		}

		d.store.MarkSuccess(acct.ID)
		return transformer.FromUpstream(respBody)
	}
	return nil, apierrors.RateLimitExhausted(d.retryAfterSeconds())
}

// Stream executes newTransformer's request against the pool with failover on
// 429 restricted to before the first byte reaches sink. Once the upstream
// stream has started, any subsequent error is terminal and surfaced through
// the transformer's own error-event mechanism, not retried.
func (d *Dispatcher) Stream(ctx context.Context, model string, newTransformer func() StreamTransformer, sink Sink) error {
	for i := 0; i < d.attempts(); i++ {
		acct, ok := d.selector.Pick(model)
		if !ok {
			return apierrors.RateLimitExhausted(d.retryAfterSeconds())
		}

		transformer := newTransformer()
		project := d.resolver.Resolve(ctx, acct.ID)
		body, err := transformer.ToUpstream(project)
		if err != nil {
			return err
		}

		resp, err := d.transport.PostStream(ctx, acct.ID, ":streamGenerateContent?alt=sse", body)
		if err != nil {
			if apiErr := apierrors.AsError(err); apiErr.Kind == apierrors.KindRateLimited {
				d.store.MarkCooldown(acct.ID)
				continue
			}
			return err
		}

		d.store.MarkSuccess(acct.ID)
		return d.pump(ctx, resp, transformer, sink)
	}
	return apierrors.RateLimitExhausted(d.retryAfterSeconds())
}

func (d *Dispatcher) pump(ctx context.Context, resp Response, transformer StreamTransformer, sink Sink) error {
	body := resp.Body()
	defer body.Close()

	framer := sse.New()
	buf := make([]byte, 32*1024)
	completed := false

	for {
		select {
		case <-ctx.Done():
			return apierrors.New(apierrors.KindClientDisconnect, 0, "client disconnected")
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			payloads := framer.Feed(buf[:n])
			for _, payload := range payloads {
				if err := transformer.HandleChunk([]byte(payload), sink); err != nil {
					return apierrors.Wrap(apierrors.KindParseFailure, 0, "malformed upstream chunk", err)
				}
			}
			if len(payloads) > 0 {
				sink.Flush()
			}
			if sse.SawDone(buf[:n]) {
				completed = true
			}
		}
		if readErr != nil {
			break
		}
	}

	if !completed {
		if err := transformer.Finalize(sink); err != nil {
			return err
		}
	}
	sink.Flush()
	return nil
}
