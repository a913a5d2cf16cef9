package cmd

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/spf13/pflag"

	"github.com/staffline/staffline-api/internal/command"
	"github.com/staffline/staffline-api/internal/session"
	"github.com/staffline/staffline-api/internal/transport"
)

const (
	exitOK          = 0
	exitGeneric     = 1
	exitUsage       = 2
	exitAuth        = 3
	exitNotFound    = 4
	exitForbidden   = 5
	exitRateLimited = 6
	exitServer      = 7
	exitNetwork     = 8
)

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	var handled *handledError
	if errors.As(err, &handled) {
		if handled.exitCode != 0 {
			return handled.exitCode
		}
		err = handled.err
	}

	if errors.Is(err, session.ErrNoSession) {
		return exitAuth
	}
	var dispatch *command.DispatchError
	if errors.As(err, &dispatch) {
		return exitUsage
	}
	if code := exitCodeFromAPI(err); code != 0 {
		return code
	}
	if isUsageError(err) {
		return exitUsage
	}
	if isNetworkError(err) {
		return exitNetwork
	}
	return exitGeneric
}

func exitCodeFromAPI(err error) int {
	e, ok := transport.AsError(err)
	if !ok {
		return 0
	}
	switch e.Code {
	case transport.ErrUnauthorized:
		return exitAuth
	case transport.ErrForbidden:
		return exitForbidden
	case transport.ErrNotFound:
		return exitNotFound
	case transport.ErrRateLimited:
		return exitRateLimited
	case transport.ErrServerError:
		return exitServer
	case transport.ErrTimeout, transport.ErrNetwork:
		return exitNetwork
	case transport.ErrBadRequest, transport.ErrValidation, transport.ErrConflict:
		return exitUsage
	default:
		return 0
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "i/o timeout")
}

func isUsageError(err error) bool {
	msg := strings.ToLower(err.Error())
	indicators := []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"unknown verb",
		"flag needs an argument",
		"requires at least",
		"accepts ",
		"invalid argument",
		"invalid --",
		"must be",
		"is required",
	}
	for _, indicator := range indicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
