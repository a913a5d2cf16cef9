// Package call is the entry point feature code uses to reach the backend.
// Every call resolves to an Outcome; failures never surface as Go errors.
package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/staffline/staffline-api/internal/command"
	"github.com/staffline/staffline-api/internal/config"
	"github.com/staffline/staffline-api/internal/endpoint"
	"github.com/staffline/staffline-api/internal/metrics"
	"github.com/staffline/staffline-api/internal/transport"
)

// FallbackMessage is shown when a failure carries no usable message.
const FallbackMessage = "Something went wrong. Please try again."

// Notifier receives the user-visible message for a failed call.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Status describes how a call ended. Only IsError is set on success.
type Status struct {
	IsError      bool                `json:"isError"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
	ErrorCode    transport.ErrorCode `json:"errorCode,omitempty"`
	HTTPStatus   int                 `json:"httpStatus,omitempty"`
}

// Outcome is the single result of one call. Res holds the decoded body on
// success and the error data (possibly nil) on failure.
type Outcome struct {
	Status Status `json:"status"`
	Res    any    `json:"res"`
}

// Err returns a *transport.Error for a failed outcome, or nil.
func (o Outcome) Err() error {
	if !o.Status.IsError {
		return nil
	}
	return &transport.Error{
		Message: o.Status.ErrorMessage,
		Status:  o.Status.HTTPStatus,
		Code:    o.Status.ErrorCode,
		Data:    o.Res,
	}
}

// Request pairs an endpoint with its payload for batch dispatch.
type Request struct {
	Endpoint endpoint.Endpoint
	Payload  any
}

// Caller runs commands against the store's current transport.
type Caller struct {
	store    *config.Store
	notifier Notifier
	metrics  *metrics.Calls
}

// Option configures a Caller.
type Option func(*Caller)

// WithMetrics records every call on m.
func WithMetrics(m *metrics.Calls) Option {
	return func(c *Caller) { c.metrics = m }
}

// New creates a Caller. A nil notifier disables notifications.
func New(store *config.Store, notifier Notifier, opts ...Option) *Caller {
	c := &Caller{store: store, notifier: notifier}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes one call synchronously.
func (c *Caller) Do(ctx context.Context, ep endpoint.Endpoint, payload any) Outcome {
	h := c.store.Transport(ctx)
	start := time.Now()
	res, err := command.FromEndpoint(ep, payload).Execute(ctx, h.Transport)
	if err == nil {
		c.metrics.Observe(string(ep.Verb()), metrics.OutcomeSuccess, "", time.Since(start))
		return Outcome{Status: Status{IsError: false}, Res: res}
	}

	out := failure(err)
	c.metrics.Observe(string(ep.Verb()), metrics.OutcomeError, string(out.Status.ErrorCode), time.Since(start))
	if c.notifier != nil {
		c.notifier.Notify(ctx, out.Status.ErrorMessage)
	}
	return out
}

// Async executes one call in the background. The channel yields exactly one
// Outcome and is then closed.
func (c *Caller) Async(ctx context.Context, ep endpoint.Endpoint, payload any) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		ch <- c.Do(ctx, ep, payload)
	}()
	return ch
}

// Respond executes one call and hands the result to fn, for callers written
// in callback style.
func (c *Caller) Respond(ctx context.Context, ep endpoint.Endpoint, payload any, fn func(Status, any)) {
	out := c.Do(ctx, ep, payload)
	if fn != nil {
		fn(out.Status, out.Res)
	}
}

// DoAll executes reqs concurrently. Calls are independent: one failure does
// not cancel the others. Results are in input order.
func (c *Caller) DoAll(ctx context.Context, reqs []Request) []Outcome {
	out := make([]Outcome, len(reqs))
	var g errgroup.Group
	g.SetLimit(8)
	for i, r := range reqs {
		g.Go(func() error {
			out[i] = c.Do(ctx, r.Endpoint, r.Payload)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Decode converts a generic result into dst via a JSON round trip.
func Decode(res any, dst any) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func failure(err error) Outcome {
	status := Status{IsError: true}
	var data any
	var msg string

	var dispatch *command.DispatchError
	if e, ok := transport.AsError(err); ok {
		data = e.Data
		msg = e.Message
		status.HTTPStatus = e.Status
		status.ErrorCode = e.Code
		if status.ErrorCode == "" && e.Status != 0 {
			status.ErrorCode = transport.ErrorCodeFromStatus(e.Status)
		}
	} else {
		msg = err.Error()
		if errors.As(err, &dispatch) {
			status.ErrorCode = transport.ErrBadRequest
		} else {
			status.ErrorCode = transport.ErrUnknown
		}
	}

	status.ErrorMessage = Message(data, msg)
	return Outcome{Status: status, Res: data}
}

// Message picks the user-facing text for a failure: data.message, then
// data.error, then fallback, then FallbackMessage.
func Message(data any, fallback string) string {
	if m, ok := data.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return FallbackMessage
}
