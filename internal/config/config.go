// Package config holds the settings the dispatch layer builds its transport
// from, and the transport handle cached from them.
//
// A Store is created once per process and injected wherever calls are made.
// Every mutation that affects the transport bumps the store's version; a
// Handle remembers the version it was built at, so holders can tell when
// their transport has been superseded.
package config

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staffline/staffline-api/internal/debug"
	"github.com/staffline/staffline-api/internal/transport"
)

const (
	DefaultBaseURL = "http://localhost:3000/api"
	DefaultTimeout = 15000 * time.Millisecond
)

// TokenSource supplies the persisted credential when no explicit token has
// been set on the store.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Interceptors are the custom hooks appended after the built-in ones.
type Interceptors struct {
	Request  []transport.RequestHook
	Response []transport.ResponseHook
	Error    []transport.ErrorHook
}

func (i Interceptors) clone() Interceptors {
	return Interceptors{
		Request:  slices.Clone(i.Request),
		Response: slices.Clone(i.Response),
		Error:    slices.Clone(i.Error),
	}
}

// Settings is a snapshot of the store's configuration.
type Settings struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultHeaders map[string]string
	Interceptors   Interceptors
	ErrorMapper    transport.ErrorMapper
	RequestLogger  func(*http.Request)
	ResponseLogger func(*transport.Response)

	// AuthToken is only consulted when AuthTokenSet is true. An explicit
	// empty token means "send no Authorization header" and skips the
	// TokenSource fallback.
	AuthToken    string
	AuthTokenSet bool
}

func (s Settings) clone() Settings {
	out := s
	out.DefaultHeaders = maps.Clone(s.DefaultHeaders)
	out.Interceptors = s.Interceptors.clone()
	return out
}

// DefaultSettings returns the settings a new Store starts with.
func DefaultSettings() Settings {
	return Settings{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		DefaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		ErrorMapper:    transport.NormalizeError,
		RequestLogger:  logRequest,
		ResponseLogger: logResponse,
	}
}

// Patch is a shallow update: every non-nil field replaces the current value.
type Patch struct {
	BaseURL        *string
	Timeout        *time.Duration
	DefaultHeaders map[string]string
	Interceptors   *Interceptors
	ErrorMapper    transport.ErrorMapper
	RequestLogger  func(*http.Request)
	ResponseLogger func(*transport.Response)
}

func (p Patch) apply(s *Settings) {
	if p.BaseURL != nil {
		s.BaseURL = *p.BaseURL
	}
	if p.Timeout != nil {
		s.Timeout = *p.Timeout
	}
	if p.DefaultHeaders != nil {
		s.DefaultHeaders = maps.Clone(p.DefaultHeaders)
	}
	if p.Interceptors != nil {
		s.Interceptors = p.Interceptors.clone()
	}
	if p.ErrorMapper != nil {
		s.ErrorMapper = p.ErrorMapper
	}
	if p.RequestLogger != nil {
		s.RequestLogger = p.RequestLogger
	}
	if p.ResponseLogger != nil {
		s.ResponseLogger = p.ResponseLogger
	}
}

// Handle is a built transport and the store version it was built from.
type Handle struct {
	Transport transport.Transport
	Version   uint64
}

// Store owns the settings and the lazily built transport.
type Store struct {
	mu       sync.Mutex
	settings Settings
	kind     transport.Kind
	fake     transport.Transport
	tokens   TokenSource
	rt       http.RoundTripper
	version  uint64
	handle   *Handle
}

// Option configures a Store at creation.
type Option func(*Store)

// WithKind selects the transport strategy. It is fixed for the store's life.
func WithKind(k transport.Kind) Option {
	return func(s *Store) { s.kind = k }
}

// WithFake makes the store hand out t instead of building a network client.
func WithFake(t transport.Transport) Option {
	return func(s *Store) {
		s.kind = transport.KindFake
		s.fake = t
	}
}

// WithTokenSource sets the fallback used when no explicit token is set.
func WithTokenSource(ts TokenSource) Option {
	return func(s *Store) { s.tokens = ts }
}

// WithSettings applies p on top of the defaults.
func WithSettings(p Patch) Option {
	return func(s *Store) { p.apply(&s.settings) }
}

// WithRoundTripper replaces the shared connection pool, mainly for tests.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(s *Store) { s.rt = rt }
}

// New creates a Store with default settings.
func New(opts ...Option) *Store {
	s := &Store{settings: DefaultSettings(), kind: transport.KindHTTP}
	for _, opt := range opts {
		opt(s)
	}
	if s.kind == transport.KindFake && s.fake == nil {
		s.fake = transport.NewFake(nil)
	}
	return s
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns a process-wide Store for callers that cannot have one
// injected. Prefer passing a *Store explicitly.
func Default() *Store {
	defaultOnce.Do(func() { defaultStore = New() })
	return defaultStore
}

// Kind reports the transport strategy chosen at creation.
func (s *Store) Kind() transport.Kind {
	return s.kind
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.clone()
}

type setOptions struct {
	rebuild bool
}

// SetOption tweaks a SetConfig call.
type SetOption func(*setOptions)

// WithoutRebuild keeps the cached transport after SetConfig.
func WithoutRebuild() SetOption {
	return func(o *setOptions) { o.rebuild = false }
}

// SetConfig merges p into the settings and, unless suppressed, invalidates
// the cached transport.
func (s *Store) SetConfig(p Patch, opts ...SetOption) {
	o := setOptions{rebuild: true}
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p.apply(&s.settings)
	if o.rebuild {
		s.invalidateLocked()
	}
}

// SetAuthToken sets an explicit token. An empty token explicitly disables
// the Authorization header. The cached transport keeps its old token until
// it is rebuilt, so pass rebuild=true when the change must apply to the
// next call.
func (s *Store) SetAuthToken(token string, rebuild bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.AuthToken = token
	s.settings.AuthTokenSet = true
	if rebuild {
		s.invalidateLocked()
	}
}

// UnsetAuthToken drops the explicit token so the TokenSource is consulted
// again.
func (s *Store) UnsetAuthToken(rebuild bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.AuthToken = ""
	s.settings.AuthTokenSet = false
	if rebuild {
		s.invalidateLocked()
	}
}

// AuthToken returns the explicit token and whether one is set.
func (s *Store) AuthToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.AuthToken, s.settings.AuthTokenSet
}

// RebuildTransport discards the cached transport; the next Transport call
// builds a fresh one from the current settings.
func (s *Store) RebuildTransport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

func (s *Store) invalidateLocked() {
	s.version++
	s.handle = nil
}

// Version returns the current settings generation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Stale reports whether h was built from settings that have since changed.
func (s *Store) Stale(h Handle) bool {
	return h.Version != s.Version()
}

// Transport returns the cached transport, building it if needed.
func (s *Store) Transport(ctx context.Context) Handle {
	s.mu.Lock()
	if s.handle != nil {
		h := *s.handle
		s.mu.Unlock()
		return h
	}
	settings := s.settings.clone()
	version := s.version
	s.mu.Unlock()

	h := Handle{Transport: s.build(ctx, settings), Version: version}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil && s.version == version {
		s.handle = &h
	} else if s.handle != nil && s.handle.Version == version {
		// Another caller built concurrently; share its handle.
		return *s.handle
	}
	return h
}

func (s *Store) build(ctx context.Context, settings Settings) transport.Transport {
	switch s.kind {
	case transport.KindFake:
		return s.fake
	case transport.KindDirect:
		headers := maps.Clone(settings.DefaultHeaders)
		if headers == nil {
			headers = map[string]string{}
		}
		if token := s.resolveToken(ctx, settings); token != "" {
			headers["Authorization"] = "Bearer " + token
		}
		return transport.NewDirectClient(settings.BaseURL, headers)
	default:
		return transport.NewHTTPClient(transport.HTTPOptions{
			BaseURL:      settings.BaseURL,
			Timeout:      settings.Timeout,
			Headers:      settings.DefaultHeaders,
			Pipeline:     s.pipeline(settings),
			RoundTripper: s.rt,
		})
	}
}

// pipeline assembles the three interceptor stages for one build.
func (s *Store) pipeline(settings Settings) transport.Pipeline {
	request := []transport.RequestHook{
		func(req *http.Request) error {
			if token := s.resolveToken(req.Context(), settings); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			if req.Header.Get("X-Request-Id") == "" {
				req.Header.Set("X-Request-Id", uuid.NewString())
			}
			if settings.RequestLogger != nil {
				settings.RequestLogger(req)
			}
			return nil
		},
	}
	request = append(request, settings.Interceptors.Request...)

	var response []transport.ResponseHook
	if settings.ResponseLogger != nil {
		logger := settings.ResponseLogger
		response = append(response, func(resp *transport.Response) error {
			logger(resp)
			return nil
		})
	}
	response = append(response, settings.Interceptors.Response...)

	mapper := settings.ErrorMapper
	if mapper == nil {
		mapper = transport.NormalizeError
	}

	return transport.Pipeline{
		Request:  request,
		Response: response,
		Error:    settings.Interceptors.Error,
		Mapper:   mapper,
		OnHookFailure: func(f transport.HookFailure) {
			slog.Warn("error interceptor failed", "index", f.Index, "error", f.Err)
		},
	}
}

// resolveToken prefers the explicit token; otherwise it reads the
// TokenSource. Storage failures degrade to "no token".
func (s *Store) resolveToken(ctx context.Context, settings Settings) string {
	if settings.AuthTokenSet {
		return settings.AuthToken
	}
	if s.tokens == nil {
		return ""
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		if debug.IsEnabled(ctx) {
			slog.Debug("token lookup failed", "error", err)
		}
		return ""
	}
	return token
}

func logRequest(req *http.Request) {
	if !debug.IsEnabled(req.Context()) {
		return
	}
	slog.Debug("request", "method", req.Method, "url", req.URL.String(), "request_id", req.Header.Get("X-Request-Id"))
}

func logResponse(resp *transport.Response) {
	if resp.Request == nil || !debug.IsEnabled(resp.Request.Context()) {
		return
	}
	slog.Debug("response",
		"method", resp.Request.Method,
		"url", resp.Request.URL.String(),
		"status", resp.StatusCode,
		"duration", resp.Duration,
		"request_id", resp.Request.Header.Get("X-Request-Id"),
	)
}
