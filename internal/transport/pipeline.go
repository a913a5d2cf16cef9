package transport

import (
	"fmt"
	"net/http"
)

// RequestHook may mutate an outgoing request. Returning an error aborts the
// call before it reaches the network.
type RequestHook func(req *http.Request) error

// ResponseHook may transform a successful response in place.
type ResponseHook func(resp *Response) error

// ErrorHook observes a failed call. It cannot alter propagation: whatever it
// returns is recorded as a HookFailure and logged.
type ErrorHook func(err error) error

// ErrorMapper turns a failure into the value returned to the caller.
type ErrorMapper func(err error) error

// Pipeline holds the ordered interceptor stages of the production client.
type Pipeline struct {
	Request  []RequestHook
	Response []ResponseHook
	Error    []ErrorHook
	Mapper   ErrorMapper
	// OnHookFailure receives every swallowed error-hook failure.
	OnHookFailure func(HookFailure)
}

// HookFailure records an error hook that returned an error or panicked.
type HookFailure struct {
	Index int
	Err   error
}

func (f HookFailure) Error() string {
	return fmt.Sprintf("error hook %d failed: %v", f.Index, f.Err)
}

func (p Pipeline) onRequest(req *http.Request) error {
	for i, hook := range p.Request {
		if err := hook(req); err != nil {
			return fmt.Errorf("request hook %d: %w", i, err)
		}
	}
	return nil
}

func (p Pipeline) onResponse(resp *Response) error {
	for i, hook := range p.Response {
		if err := hook(resp); err != nil {
			return fmt.Errorf("response hook %d: %w", i, err)
		}
	}
	return nil
}

// onError runs every error hook, collects their failures, then applies the
// mapper. A failing mapper's result is returned as-is; a mapper that returns
// nil leaves the original error in place so a failure is never dropped.
func (p Pipeline) onError(err error) (error, []HookFailure) {
	var failures []HookFailure
	for i, hook := range p.Error {
		if hookErr := runErrorHook(hook, err); hookErr != nil {
			f := HookFailure{Index: i, Err: hookErr}
			failures = append(failures, f)
			if p.OnHookFailure != nil {
				p.OnHookFailure(f)
			}
		}
	}
	if p.Mapper != nil {
		if mapped := p.Mapper(err); mapped != nil {
			return mapped, failures
		}
	}
	return err, failures
}

func runErrorHook(hook ErrorHook, err error) (hookErr error) {
	defer func() {
		if r := recover(); r != nil {
			hookErr = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook(err)
}
