package dryrun

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/staffline-api/internal/endpoint"
)

func TestNew(t *testing.T) {
	p := New("http://localhost:3000/api/", endpoint.Make(endpoint.POST, "attendance"), map[string]any{"note": "x"}, true)
	assert.Equal(t, endpoint.POST, p.Verb)
	assert.Equal(t, "http://localhost:3000/api/attendance", p.URL)
	assert.Equal(t, "body", p.PayloadAs)
	assert.Empty(t, p.Warnings)

	p = New("http://h/api", endpoint.Make(endpoint.GET, "attendance"), map[string]any{"from": "2026-01-01"}, true)
	assert.Equal(t, "query", p.PayloadAs)

	p = New("http://h/api", endpoint.Make(endpoint.DELETE, "attendance", "1"), nil, false)
	assert.Empty(t, p.PayloadAs)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "without Authorization")

	p = New("http://h/api", endpoint.Make("TRACE", "x"), nil, true)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "TRACE is not a supported verb")
}

func TestPreviewWrite(t *testing.T) {
	p := New("http://h/api", endpoint.Make(endpoint.PATCH, "attendance", "7"), map[string]any{"checkOut": true}, false)

	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))

	out := buf.String()
	assert.Contains(t, out, "[DRY-RUN] Would send PATCH http://h/api/attendance/7")
	assert.Contains(t, out, `"checkOut": true`)
	assert.Contains(t, out, "authenticated: false")
	assert.Contains(t, out, "! no session")
	assert.Contains(t, out, "Nothing sent (dry-run mode)")
}
