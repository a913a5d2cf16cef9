// Package dryrun previews an API call without sending it.
package dryrun

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/staffline/staffline-api/internal/endpoint"
)

const rule = "───────────────────────────────────────"

// Preview describes the request a call would make.
type Preview struct {
	Verb          endpoint.Verb `json:"verb"`
	URL           string        `json:"url"`
	PayloadAs     string        `json:"payload_as,omitempty"`
	Payload       any           `json:"payload,omitempty"`
	Authenticated bool          `json:"authenticated"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// New builds the preview for ep against baseURL.
func New(baseURL string, ep endpoint.Endpoint, payload any, authenticated bool) Preview {
	p := Preview{
		Verb:          ep.Verb(),
		URL:           strings.TrimRight(baseURL, "/") + ep.Path(),
		Payload:       payload,
		Authenticated: authenticated,
	}
	if payload != nil {
		p.PayloadAs = "query"
		if ep.Verb().HasBody() {
			p.PayloadAs = "body"
		}
	}
	if !ep.Verb().Valid() {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%s is not a supported verb; the call would fail before sending", ep.Verb()))
	}
	if !authenticated {
		p.Warnings = append(p.Warnings, "no session; the request would be sent without Authorization")
	}
	return p
}

// Write prints the preview for humans.
func (p Preview) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[DRY-RUN] Would send %s %s\n", p.Verb, p.URL)
	b.WriteString(rule + "\n")
	if p.Payload != nil {
		data, err := json.MarshalIndent(p.Payload, "  ", "  ")
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		fmt.Fprintf(&b, "  %s: %s\n", p.PayloadAs, data)
	}
	fmt.Fprintf(&b, "  authenticated: %t\n", p.Authenticated)
	if len(p.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, warning := range p.Warnings {
			fmt.Fprintf(&b, "  ! %s\n", warning)
		}
	}
	b.WriteString(rule + "\n")
	b.WriteString("Nothing sent (dry-run mode)\n")
	_, err := io.WriteString(w, b.String())
	return err
}
