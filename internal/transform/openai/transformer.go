package openai

// Transformer binds one client Request to the dispatch.UnaryTransformer /
// dispatch.StreamTransformer contract. A fresh Transformer must be created
// per dispatch attempt so its (currently stateless request-side) fields
// never leak across a pre-header failover.
type Transformer struct {
	req  *Request
	acc  *accumulator
}

// New binds req for a single dispatch attempt.
func New(req *Request) *Transformer {
	return &Transformer{req: req, acc: newAccumulator()}
}

// Model returns the client-requested model name, used by the Selector.
func (t *Transformer) Model() string {
	if t.req == nil {
		return ""
	}
	return t.req.Model
}
