// Package notify delivers user-visible error notifications ("toasts").
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/staffline/staffline-api/internal/iocontext"
)

// Writer prints each notification as a single line on the context's error
// stream.
type Writer struct {
	Prefix string
}

// Notify writes message to iocontext.GetIO(ctx).ErrOut.
func (w Writer) Notify(ctx context.Context, message string) {
	prefix := w.Prefix
	if prefix == "" {
		prefix = "Error:"
	}
	_, _ = fmt.Fprintf(iocontext.GetIO(ctx).ErrOut, "%s %s\n", prefix, message)
}

// Func adapts a function into a notifier.
type Func func(ctx context.Context, message string)

func (f Func) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// Messages returns the notifications received so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}
