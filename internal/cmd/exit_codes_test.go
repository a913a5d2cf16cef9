package cmd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"

	"github.com/staffline/staffline-api/internal/command"
	"github.com/staffline/staffline-api/internal/endpoint"
	"github.com/staffline/staffline-api/internal/session"
	"github.com/staffline/staffline-api/internal/transport"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"help", pflag.ErrHelp, exitOK},
		{"no session", fmt.Errorf("whoami: %w", session.ErrNoSession), exitAuth},
		{"dispatch", &command.DispatchError{Verb: "TRACE", Path: "/", Err: endpoint.ErrUnknownVerb}, exitUsage},
		{"unauthorized", &transport.Error{Status: 401, Code: transport.ErrUnauthorized}, exitAuth},
		{"forbidden", &transport.Error{Status: 403, Code: transport.ErrForbidden}, exitForbidden},
		{"not found", &transport.Error{Status: 404, Code: transport.ErrNotFound}, exitNotFound},
		{"conflict", &transport.Error{Status: 409, Code: transport.ErrConflict}, exitUsage},
		{"validation", &transport.Error{Status: 422, Code: transport.ErrValidation}, exitUsage},
		{"rate limited", &transport.Error{Status: 429, Code: transport.ErrRateLimited}, exitRateLimited},
		{"server", &transport.Error{Status: 503, Code: transport.ErrServerError}, exitServer},
		{"timeout", &transport.Error{Code: transport.ErrTimeout}, exitNetwork},
		{"network", &transport.Error{Code: transport.ErrNetwork}, exitNetwork},
		{"deadline", context.DeadlineExceeded, exitNetwork},
		{"refused", errors.New("dial tcp: connection refused"), exitNetwork},
		{"unknown command", errors.New(`unknown command "x" for "sl"`), exitUsage},
		{"required", errors.New("--email is required"), exitUsage},
		{"generic", errors.New("boom"), exitGeneric},
		{"handled keeps code", &handledError{err: errors.New("x"), exitCode: exitForbidden}, exitForbidden},
		{"handled without code", &handledError{err: session.ErrNoSession}, exitAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
