// Package validation checks user input before it is sent anywhere.
package validation

import (
	"fmt"
	"net/mail"
	"unicode/utf8"
)

// Input limits.
const (
	MaxEmailLength = 320     // 64 local + 1 + 255 domain
	MaxJSONPayload = 1048576 // 1MB
)

// ValidateEmail checks that email is a bare address of acceptable length.
// Display names ("Ada <ada@example.com>") are rejected since the API matches
// on the address alone.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if n := utf8.RuneCountInString(email); n > MaxEmailLength {
		return fmt.Errorf("email exceeds maximum length of %d characters (got %d)", MaxEmailLength, n)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if addr.Address != email {
		return fmt.Errorf("invalid email format: expected a bare address, got %q", email)
	}
	return nil
}

// ValidateJSONPayload checks the size of a raw JSON payload.
func ValidateJSONPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("JSON payload cannot be empty")
	}
	if len(payload) > MaxJSONPayload {
		return fmt.Errorf("JSON payload exceeds maximum size of %d bytes (got %d)", MaxJSONPayload, len(payload))
	}
	return nil
}
