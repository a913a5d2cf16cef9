package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/staffline/staffline-api/internal/transport"
)

// Env holds the settings that can come from the environment.
type Env struct {
	BaseURL   string        `env:"STAFFLINE_BASE_URL"`
	Timeout   time.Duration `env:"STAFFLINE_TIMEOUT"`
	Transport string        `env:"STAFFLINE_TRANSPORT" envDefault:"http"`
	Token     string        `env:"STAFFLINE_TOKEN"`
}

// LoadEnv reads Env from the process environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	e.BaseURL = strings.TrimSuffix(strings.TrimSpace(e.BaseURL), "/")
	e.Transport = strings.ToLower(strings.TrimSpace(e.Transport))
	if e.Timeout < 0 {
		return Env{}, fmt.Errorf("STAFFLINE_TIMEOUT must be >= 0")
	}
	return e, nil
}

// Options converts the settings into Store options. A token is set as an
// explicit token and wins over persisted storage.
func (e Env) Options() ([]Option, error) {
	kind, err := transport.ParseKind(e.Transport)
	if err != nil {
		return nil, err
	}
	var patch Patch
	if e.BaseURL != "" {
		patch.BaseURL = &e.BaseURL
	}
	if e.Timeout > 0 {
		patch.Timeout = &e.Timeout
	}
	opts := []Option{WithKind(kind), WithSettings(patch)}
	if e.Token != "" {
		token := e.Token
		opts = append(opts, func(s *Store) {
			s.settings.AuthToken = token
			s.settings.AuthTokenSet = true
		})
	}
	return opts, nil
}
