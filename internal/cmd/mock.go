package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/staffline/staffline-api/internal/mockapi"
)

const shutdownTimeout = 5 * time.Second

func newMockServerCmd() *cobra.Command {
	var (
		addr   string
		prefix string
		ttl    time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local mock of the Staffline API",
		Long: strings.TrimSpace(`
Serve an in-memory Staffline API for local development and demos. The demo
account is demo@staffline.dev with password "demo". Request metrics are
served at /metrics.
`),
		Example: strings.TrimSpace(`
  sl mock-server --addr 127.0.0.1:3000
  sl login --base-url http://127.0.0.1:3000/api --email demo@staffline.dev --password demo
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}

			opts := mockapi.Options{
				Prefix:   prefix,
				TokenTTL: ttl,
				Clock:    clock,
				Registry: prometheus.NewRegistry(),
			}
			if secret != "" {
				opts.Secret = []byte(secret)
			}
			srv := &http.Server{
				Handler:           mockapi.New(opts),
				ReadHeaderTimeout: 10 * time.Second,
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mock Staffline API listening on http://%s%s\n", ln.Addr(), mockPrefix(prefix))
			return serveUntilDone(ctx, srv, ln)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3000", "Listen address")
	cmd.Flags().StringVar(&prefix, "prefix", mockapi.DefaultPrefix, "Path prefix for API routes")
	cmd.Flags().DurationVar(&ttl, "token-ttl", mockapi.DefaultTokenTTL, "Lifetime of issued tokens")
	cmd.Flags().StringVar(&secret, "secret", "", "HMAC secret for issued tokens (random if empty)")
	return cmd
}

func mockPrefix(p string) string {
	if p == "" {
		return mockapi.DefaultPrefix
	}
	return p
}

// serveUntilDone serves on ln until ctx is cancelled, then shuts down
// gracefully.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Debug("shutting down mock server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
