package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/staffline/staffline-api/internal/config"
)

// Expiry decodes the exp claim without verifying the signature. ok is false
// when the token cannot be parsed or carries no exp.
func Expiry(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Expired reports whether token carries an exp at or before now. Tokens
// whose expiry cannot be read are not considered expired.
func Expired(token string, now time.Time) bool {
	exp, ok := Expiry(token)
	return ok && !exp.After(now)
}

// Rehydrate restores the persisted session into store at startup. An
// expired session is cleared and the store is left with an explicit empty
// token. The transport is rebuilt on every path so no header from an
// earlier run survives.
func Rehydrate(ctx context.Context, mgr *Manager, store *config.Store, clock clockwork.Clock) (*Session, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s, err := mgr.Load(ctx)
	if err != nil {
		store.RebuildTransport()
		if errors.Is(err, ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}

	if Expired(s.Token, clock.Now()) {
		slog.Debug("persisted session expired", "user", s.User.Email)
		clearErr := mgr.Clear(ctx)
		store.SetAuthToken("", true)
		return nil, clearErr
	}

	store.SetAuthToken(s.Token, true)
	return s, nil
}
