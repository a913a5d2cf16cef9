package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/staffline/staffline-api/internal/session"
	"github.com/staffline/staffline-api/internal/transport"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder
	apiErr, isAPI := transport.AsError(err)

	switch {
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())

	case isAPI && apiErr.Status != 0:
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", apiErr.Status, apiErr.Message)
		msg.WriteString(suggestionsForCode(apiErr.Code))
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", apiErr.RequestID)
		}

	case isAPI && apiErr.Code == transport.ErrTimeout:
		msg.WriteString("Request timed out.\n\n")
		msg.WriteString(suggestionsForCode(transport.ErrTimeout))

	case strings.Contains(err.Error(), "connection refused"):
		msg.WriteString("Connection refused.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check if the Staffline API is running\n")
		msg.WriteString("  - Verify the URL: sl config show\n")
		msg.WriteString("  - Try the local backend: sl mock-server\n")

	case strings.Contains(err.Error(), "no such host"):
		msg.WriteString("DNS resolution failed.\n\n")
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check the --base-url spelling\n")
		msg.WriteString("  - Verify your DNS settings\n")

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForCode(code transport.ErrorCode) string {
	var s strings.Builder
	s.WriteString("Suggestions:\n")

	switch code {
	case transport.ErrBadRequest, transport.ErrValidation:
		s.WriteString("  - Check your request parameters\n")
		s.WriteString("  - Use --debug to see the full request\n")
	case transport.ErrUnauthorized:
		s.WriteString("  - Your session may be invalid or expired\n")
		s.WriteString("  - Run: sl login\n")
	case transport.ErrForbidden:
		s.WriteString("  - Your role does not allow this action\n")
		s.WriteString("  - Contact your Staffline administrator\n")
	case transport.ErrNotFound:
		s.WriteString("  - The resource doesn't exist or was deleted\n")
		s.WriteString("  - Check the ID is correct\n")
	case transport.ErrConflict:
		s.WriteString("  - The resource changed since you last read it\n")
	case transport.ErrRateLimited:
		s.WriteString("  - Too many requests, wait and retry\n")
	case transport.ErrServerError:
		s.WriteString("  - Server error - not your fault\n")
		s.WriteString("  - Wait and retry\n")
	case transport.ErrTimeout:
		s.WriteString("  - Increase --timeout\n")
		s.WriteString("  - Check your network connection\n")
	default:
		s.WriteString("  - Use --debug for more details\n")
	}
	return s.String()
}
