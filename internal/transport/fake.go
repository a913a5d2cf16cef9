package transport

import (
	"context"
	"sync"

	"github.com/staffline/staffline-api/internal/endpoint"
)

// Handler produces the canned result for one fake call.
type Handler func(ctx context.Context, path string, payload any) (any, error)

// Call records one request made against a Fake.
type Call struct {
	Verb    endpoint.Verb
	Path    string
	Payload any
}

// Fake is a programmable Transport for tests and offline runs. Verbs without
// a handler answer with an empty object.
type Fake struct {
	mu       sync.Mutex
	handlers map[endpoint.Verb]Handler
	calls    []Call
}

var _ Transport = (*Fake)(nil)

// NewFake creates a Fake with the given per-verb handlers.
func NewFake(handlers map[endpoint.Verb]Handler) *Fake {
	f := &Fake{handlers: make(map[endpoint.Verb]Handler, len(handlers))}
	for v, h := range handlers {
		f.handlers[v] = h
	}
	return f
}

// Handle installs or replaces the handler for verb.
func (f *Fake) Handle(verb endpoint.Verb, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[verb] = h
}

// Calls returns a copy of every call made so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) Get(ctx context.Context, path string, params any) (any, error) {
	return f.call(ctx, endpoint.GET, path, params)
}

func (f *Fake) Post(ctx context.Context, path string, body any) (any, error) {
	return f.call(ctx, endpoint.POST, path, body)
}

func (f *Fake) Put(ctx context.Context, path string, body any) (any, error) {
	return f.call(ctx, endpoint.PUT, path, body)
}

func (f *Fake) Delete(ctx context.Context, path string, params any) (any, error) {
	return f.call(ctx, endpoint.DELETE, path, params)
}

func (f *Fake) Patch(ctx context.Context, path string, body any) (any, error) {
	return f.call(ctx, endpoint.PATCH, path, body)
}

func (f *Fake) call(ctx context.Context, verb endpoint.Verb, path string, payload any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Verb: verb, Path: path, Payload: payload})
	h := f.handlers[verb]
	f.mu.Unlock()

	if h == nil {
		return map[string]any{}, nil
	}
	return h(ctx, path, payload)
}
