package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/staffline/staffline-api/internal/call"
	"github.com/staffline/staffline-api/internal/iocontext"
	"github.com/staffline/staffline-api/internal/outfmt"
	"github.com/staffline/staffline-api/internal/transport"
	"github.com/staffline/staffline-api/internal/validation"
)

// errAlreadyHandled marks an error that was already reported to the user.
// Commands return it (wrapped) so cobra still exits non-zero without the
// root printing the message a second time.
var errAlreadyHandled = errors.New("error already handled")

type handledError struct {
	err      error
	exitCode int
}

func (e *handledError) Error() string {
	return e.err.Error()
}

func (e *handledError) Unwrap() error {
	return errAlreadyHandled
}

func (e *handledError) ExitCode() int {
	return e.exitCode
}

// RunE wraps a command function with enhanced error handling
func RunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil || errors.Is(err, errAlreadyHandled) {
			return err
		}
		if isJSON(cmd) {
			_ = printJSONErr(cmd, err)
		} else {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), HandleError(err))
		}
		return &handledError{err: err, exitCode: ExitCode(err)}
	}
}

// failed converts a failed outcome into a handled error. The caller's
// notifier has already shown the message on stderr; JSON output also gets
// the structured status on stdout.
func failed(cmd *cobra.Command, out call.Outcome) error {
	err := out.Err()
	if isJSON(cmd) {
		_ = printJSON(cmd, map[string]any{"error": out.Status, "data": out.Res})
	}
	return &handledError{err: err, exitCode: ExitCode(err)}
}

func isJSON(cmd *cobra.Command) bool {
	return outfmt.IsJSON(cmd.Context())
}

func printJSON(cmd *cobra.Command, v any) error {
	ctx := cmd.Context()
	return outfmt.WriteJSONFiltered(iocontext.GetIO(ctx).Out, v, outfmt.GetQuery(ctx), outfmt.IsCompact(ctx))
}

func printJSONErr(cmd *cobra.Command, err error) error {
	body := map[string]any{"message": err.Error()}
	if e, ok := transport.AsError(err); ok {
		body["message"] = e.Message
		body["code"] = e.Code
		if e.Status != 0 {
			body["status"] = e.Status
		}
		if e.RequestID != "" {
			body["request_id"] = e.RequestID
		}
	}
	return outfmt.WriteJSON(iocontext.GetIO(cmd.Context()).Out, map[string]any{"error": body}, outfmt.IsCompact(cmd.Context()))
}

// readData reads a JSON payload given inline, as @path, or as - for stdin.
func readData(value string, stdin io.Reader) (any, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	var raw []byte
	switch {
	case value == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read data from stdin: %w", err)
		}
		raw = data
	case strings.HasPrefix(value, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
		raw = data
	default:
		raw = []byte(value)
	}

	if err := validation.ValidateJSONPayload(raw); err != nil {
		return nil, err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON in --data: %w", err)
	}
	return payload, nil
}

// parseFieldPairs turns key=value pairs into an object. Values that read as
// JSON scalars (numbers, true, false, null) keep their type; key:=raw takes
// any JSON value verbatim.
func parseFieldPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		if key, raw, ok := strings.Cut(pair, ":="); ok && !strings.Contains(key, "=") {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("invalid field %q: key is required", pair)
			}
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("invalid JSON for field %q: %w", key, err)
			}
			out[key] = v
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		out[key] = scalar(value)
	}
	return out, nil
}

func scalar(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
