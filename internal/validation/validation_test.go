package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"https", "https://api.staffline.dev/api", ""},
		{"localhost", "http://localhost:3000/api", ""},
		{"private ip", "http://10.0.0.5:8080", ""},
		{"empty", "  ", "cannot be empty"},
		{"scheme", "ftp://example.com", "only http and https"},
		{"no scheme", "example.com/api", "only http and https"},
		{"no host", "http:///api", "must contain a hostname"},
		{"credentials", "https://user:pw@example.com", "must not contain credentials"},
		{"query", "https://example.com/api?x=1", "query or fragment"},
		{"fragment", "https://example.com/api#top", "query or fragment"},
		{"aws metadata", "http://169.254.169.254/latest", "cloud metadata"},
		{"gcp metadata", "http://Metadata.Google.Internal./computeMetadata", "cloud metadata"},
		{"ec2 ipv6 metadata", "http://[fd00:ec2:0::254]/", "cloud metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("demo@staffline.dev"))
	assert.ErrorContains(t, ValidateEmail(""), "cannot be empty")
	assert.ErrorContains(t, ValidateEmail("not-an-email"), "invalid email format")
	assert.ErrorContains(t, ValidateEmail("Ada <ada@example.com>"), "bare address")
	assert.ErrorContains(t, ValidateEmail(strings.Repeat("a", 315)+"@b.com"), "maximum length")
}

func TestValidateJSONPayload(t *testing.T) {
	assert.NoError(t, ValidateJSONPayload([]byte(`{}`)))
	assert.ErrorContains(t, ValidateJSONPayload(nil), "cannot be empty")
	assert.ErrorContains(t, ValidateJSONPayload(make([]byte, MaxJSONPayload+1)), "maximum size")
}
