// Package endpoint describes REST operations as immutable (verb, path) pairs.
package endpoint

import (
	"errors"
	"fmt"
	"strings"
)

// Verb is an HTTP method understood by the dispatch layer.
type Verb string

const (
	GET    Verb = "GET"
	POST   Verb = "POST"
	PUT    Verb = "PUT"
	DELETE Verb = "DELETE"
	PATCH  Verb = "PATCH"
)

// Verbs lists every supported verb in a stable order.
var Verbs = []Verb{GET, POST, PUT, DELETE, PATCH}

// ErrUnknownVerb is returned for methods outside Verbs.
var ErrUnknownVerb = errors.New("unknown verb")

// Valid reports whether v is one of the supported verbs.
func (v Verb) Valid() bool {
	switch v {
	case GET, POST, PUT, DELETE, PATCH:
		return true
	}
	return false
}

// HasBody reports whether requests with this verb carry a JSON body.
func (v Verb) HasBody() bool {
	return v == POST || v == PUT || v == PATCH
}

// ParseVerb converts a case-insensitive method name into a Verb.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w %q: must be one of GET, POST, PUT, DELETE, PATCH", ErrUnknownVerb, s)
	}
	return v, nil
}

// Endpoint identifies one REST operation. The zero value is not meaningful;
// build endpoints with Make.
type Endpoint struct {
	verb Verb
	path string
}

// Make joins base and an optional suffix into a normalized endpoint.
//
//	Make(GET, "users")            -> GET /users
//	Make(GET, "/users/", "getAll") -> GET /users/getAll
//	Make(GET, "")                 -> GET /
func Make(verb Verb, base string, suffix ...string) Endpoint {
	parts := make([]string, 0, 1+len(suffix))
	parts = appendSegments(parts, base)
	for _, s := range suffix {
		parts = appendSegments(parts, s)
	}
	return Endpoint{verb: verb, path: "/" + strings.Join(parts, "/")}
}

// appendSegments splits s on '/' and keeps the non-empty pieces, which strips
// leading and trailing slashes and collapses repeated ones.
func appendSegments(parts []string, s string) []string {
	for _, seg := range strings.Split(s, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

// Verb returns the endpoint's HTTP method.
func (e Endpoint) Verb() Verb { return e.verb }

// Path returns the normalized path, always starting with a single '/'.
func (e Endpoint) Path() string { return e.path }

func (e Endpoint) String() string {
	return string(e.verb) + " " + e.path
}
