package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// metadataHosts are cloud instance metadata endpoints. A bearer token must
// never be sent to them, whatever else the user points the CLI at.
var metadataHosts = map[string]bool{
	"169.254.169.254":          true,
	"fd00:ec2::254":            true,
	"metadata.google.internal": true,
	"metadata.goog":            true,
	"100.100.100.200":          true,
}

// ValidateBaseURL checks an API base URL. Local and private addresses are
// allowed so the CLI can talk to a development server.
func ValidateBaseURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL scheme: only http and https are allowed, got %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("base URL must contain a hostname")
	}
	if u.User != nil {
		return fmt.Errorf("base URL must not contain credentials; use 'sl login'")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("base URL must not contain a query or fragment")
	}
	if isCloudMetadata(host) {
		return fmt.Errorf("cloud metadata endpoints are not allowed")
	}
	return nil
}

func isCloudMetadata(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if metadataHosts[host] {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return metadataHosts[ip.String()]
	}
	return false
}
