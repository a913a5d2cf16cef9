package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/staffline/staffline-api/internal/call"
	"github.com/staffline/staffline-api/internal/config"
	"github.com/staffline/staffline-api/internal/metrics"
	"github.com/staffline/staffline-api/internal/notify"
	"github.com/staffline/staffline-api/internal/session"
	"github.com/staffline/staffline-api/internal/transport"
)

const (
	storageKeyring = "keyring"
	storageRedis   = "redis"
	storageMemory  = "memory"
)

var errInvalidStorage = errors.New("invalid --storage")

// openStorage picks the session backend. Tests replace it.
var openStorage = func(ctx context.Context, kind, redisAddr string) (session.Storage, func(), error) {
	switch kind {
	case "", storageKeyring:
		return session.KeyringStorage{}, func() {}, nil
	case storageRedis:
		rdb, err := session.DialRedis(ctx, redisAddr)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStorage(rdb, ""), func() { _ = rdb.Close() }, nil
	case storageMemory:
		return session.NewMemoryStorage(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w %q (use keyring, redis, or memory)", errInvalidStorage, kind)
	}
}

// fakeTransport backs --transport fake. Tests replace it.
var fakeTransport = func() transport.Transport { return transport.NewFake(nil) }

// clock drives token expiry checks.
var clock clockwork.Clock = clockwork.NewRealClock()

// app is everything a command needs to reach the backend.
type app struct {
	store    *config.Store
	sessions *session.Manager
	caller   *call.Caller
	registry *prometheus.Registry
	restored *session.Session
	closeFn  func()
}

// newApp builds the store from flags and env, restores the persisted
// session into it, and wires the caller. An unreachable session backend
// is logged and the command runs without a session.
func newApp(ctx context.Context) (*app, error) {
	// Flags already default to the environment, so they are the effective
	// settings; the env token has no flag.
	effective := config.Env{
		BaseURL:   flags.BaseURL,
		Timeout:   flags.Timeout,
		Transport: flags.Transport,
		Token:     env.Token,
	}
	opts, err := effective.Options()
	if err != nil {
		return nil, fmt.Errorf("invalid --transport: %w", err)
	}

	storage, closeStorage, storageErr := openStorage(ctx, flags.Storage, flags.RedisAddr)
	if storageErr != nil {
		if errors.Is(storageErr, errInvalidStorage) {
			return nil, storageErr
		}
		slog.Warn("session storage unavailable, continuing without a session", "storage", flags.Storage, "error", storageErr)
		storage, closeStorage = session.UnavailableStorage{Err: storageErr}, func() {}
	}
	mgr := session.NewManager(storage)

	opts = append(opts,
		config.WithTokenSource(mgr),
		config.WithSettings(config.Patch{
			DefaultHeaders: map[string]string{
				"Content-Type": "application/json",
				"Accept":       "application/json",
				"User-Agent":   "staffline-cli/" + version,
			},
		}),
	)
	if kind, _ := transport.ParseKind(flags.Transport); kind == transport.KindFake {
		opts = append(opts, config.WithFake(fakeTransport()))
	}
	store := config.New(opts...)

	var restored *session.Session
	if storageErr == nil {
		restored, err = session.Rehydrate(ctx, mgr, store, clock)
		if err != nil {
			slog.Warn("failed to restore session, continuing without one", "error", err)
		}
	}
	if restored == nil {
		store.SetAuthToken("", true)
	}
	// An env token overrides whatever was restored.
	if env.Token != "" {
		store.SetAuthToken(env.Token, true)
	}

	reg := prometheus.NewRegistry()
	return &app{
		store:    store,
		sessions: mgr,
		caller:   call.New(store, notify.Writer{}, call.WithMetrics(metrics.NewCalls(reg))),
		registry: reg,
		restored: restored,
		closeFn:  closeStorage,
	}, nil
}

// Close flushes call metrics to --metrics-file and releases the storage.
func (a *app) Close() {
	if flags.MetricsFile != "" {
		if err := metrics.WriteFile(flags.MetricsFile, a.registry); err != nil {
			slog.Warn("failed to write metrics file", "path", flags.MetricsFile, "error", err)
		}
	}
	a.closeFn()
}
