package cmd

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/jonboulle/clockwork"

	"github.com/staffline/staffline-api/internal/iocontext"
	"github.com/staffline/staffline-api/internal/mockapi"
	"github.com/staffline/staffline-api/internal/session"
)

var stafflineEnv = []string{
	"STAFFLINE_BASE_URL",
	"STAFFLINE_TIMEOUT",
	"STAFFLINE_TRANSPORT",
	"STAFFLINE_TOKEN",
	"STAFFLINE_STORAGE",
	"STAFFLINE_REDIS_ADDR",
	"STAFFLINE_PASSWORD",
}

// testEnv is a mock API plus an isolated keyring, clock and environment.
type testEnv struct {
	server  *httptest.Server
	clock   *clockwork.FakeClock
	ring    keyring.Keyring
	baseURL string
}

// setupTestEnv points the CLI at a fresh mock API. Sessions live in an
// in-memory keyring shared by every Execute call of the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	for _, k := range stafflineEnv {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)

	fc := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	api := mockapi.New(mockapi.Options{Clock: fc, Secret: []byte("test"), TokenTTL: time.Hour})
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	ring := keyring.NewArrayKeyring(nil)
	t.Cleanup(session.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	}))

	origClock := clock
	clock = fc
	t.Cleanup(func() { clock = origClock })

	env := &testEnv{
		server:  server,
		clock:   fc,
		ring:    ring,
		baseURL: server.URL + mockapi.DefaultPrefix,
	}
	t.Setenv("STAFFLINE_BASE_URL", env.baseURL)
	return env
}

type result struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	streams, out, errOut := iocontext.Buffers(stdin)
	err := Execute(iocontext.WithIO(context.Background(), streams), args)
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	r := runCLI(t, "", "login", "--email", mockapi.DemoAccount.User.Email, "--password", mockapi.DemoAccount.Password)
	if r.err != nil {
		t.Fatalf("login failed: %v\nstderr: %s", r.err, r.stderr)
	}
}
