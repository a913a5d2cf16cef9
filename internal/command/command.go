// Package command wraps one API request as a value that can be dispatched
// against any transport.
package command

import (
	"context"
	"fmt"

	"github.com/staffline/staffline-api/internal/endpoint"
	"github.com/staffline/staffline-api/internal/transport"
)

// Command is a single (verb, path, payload) request. It is built per call
// and never reused.
type Command struct {
	Verb    endpoint.Verb
	Path    string
	Payload any
}

// DispatchError is returned when a command cannot be dispatched at all. It
// is raised before any network attempt.
type DispatchError struct {
	Verb endpoint.Verb
	Path string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("cannot dispatch %s %s: %v", e.Verb, e.Path, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// New creates a Command.
func New(verb endpoint.Verb, path string, payload any) Command {
	return Command{Verb: verb, Path: path, Payload: payload}
}

// FromEndpoint creates a Command for ep.
func FromEndpoint(ep endpoint.Endpoint, payload any) Command {
	return New(ep.Verb(), ep.Path(), payload)
}

// Execute dispatches the command to the transport method matching its verb.
// Transport errors are returned unchanged.
func (c Command) Execute(ctx context.Context, t transport.Transport) (any, error) {
	switch c.Verb {
	case endpoint.GET:
		return t.Get(ctx, c.Path, c.Payload)
	case endpoint.POST:
		return t.Post(ctx, c.Path, c.Payload)
	case endpoint.PUT:
		return t.Put(ctx, c.Path, c.Payload)
	case endpoint.DELETE:
		return t.Delete(ctx, c.Path, c.Payload)
	case endpoint.PATCH:
		return t.Patch(ctx, c.Path, c.Payload)
	default:
		return nil, &DispatchError{Verb: c.Verb, Path: c.Path, Err: endpoint.ErrUnknownVerb}
	}
}

// Run builds and executes a Command in one step.
func Run(ctx context.Context, t transport.Transport, verb endpoint.Verb, path string, payload any) (any, error) {
	return New(verb, path, payload).Execute(ctx, t)
}
