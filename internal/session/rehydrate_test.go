package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/staffline-api/internal/config"
)

var epoch = time.Unix(1_760_000_000, 0)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

// authServer records the Authorization header of the last request.
func authServer(t *testing.T) (*config.Store, *string) {
	t.Helper()
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)
	base := server.URL
	return config.New(config.WithSettings(config.Patch{BaseURL: &base})), &got
}

func TestRehydrate_Expired(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(epoch)
	mgr := NewManager(NewMemoryStorage())
	token := signed(t, jwt.MapClaims{"exp": epoch.Unix() - 1})
	require.NoError(t, mgr.Save(ctx, Session{Token: token, User: ada}))

	store, header := authServer(t)
	before := store.Version()

	s, err := Rehydrate(ctx, mgr, store, clock)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = mgr.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	tok, set := store.AuthToken()
	assert.True(t, set)
	assert.Empty(t, tok)
	assert.Greater(t, store.Version(), before)

	_, err = store.Transport(ctx).Transport.Get(ctx, "/users/me", nil)
	require.NoError(t, err)
	assert.Empty(t, *header)
}

func TestRehydrate_Valid(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(epoch)
	mgr := NewManager(NewMemoryStorage())
	token := signed(t, jwt.MapClaims{"exp": epoch.Unix() + 3600, "sub": "1"})
	require.NoError(t, mgr.Save(ctx, Session{Token: token, User: ada}))

	store, header := authServer(t)
	s, err := Rehydrate(ctx, mgr, store, clock)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, token, s.Token)
	assert.Equal(t, ada, s.User)

	_, err = mgr.Load(ctx)
	require.NoError(t, err, "session left intact")

	_, err = store.Transport(ctx).Transport.Get(ctx, "/users/me", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, *header)

	// Advancing past exp makes the same session expire on the next start.
	clock.Advance(2 * time.Hour)
	s, err = Rehydrate(ctx, mgr, store, clock)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRehydrate_UndecodableTokenIsKept(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemoryStorage())
	require.NoError(t, mgr.Save(ctx, Session{Token: "opaque-token", User: ada}))

	store, _ := authServer(t)
	s, err := Rehydrate(ctx, mgr, store, clockwork.NewFakeClockAt(epoch))
	require.NoError(t, err)
	require.NotNil(t, s)

	tok, set := store.AuthToken()
	assert.True(t, set)
	assert.Equal(t, "opaque-token", tok)
}

func TestRehydrate_NoSessionStillRebuilds(t *testing.T) {
	ctx := context.Background()
	store, _ := authServer(t)
	h := store.Transport(ctx)

	s, err := Rehydrate(ctx, NewManager(NewMemoryStorage()), store, nil)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.True(t, store.Stale(h))

	_, set := store.AuthToken()
	assert.False(t, set, "storage fallback stays active")
}

func TestExpired(t *testing.T) {
	now := epoch
	assert.True(t, Expired(signed(t, jwt.MapClaims{"exp": now.Unix()}), now))
	assert.False(t, Expired(signed(t, jwt.MapClaims{"exp": now.Unix() + 1}), now))
	assert.False(t, Expired(signed(t, jwt.MapClaims{"sub": "1"}), now), "no exp claim")
	assert.False(t, Expired("garbage", now))

	exp, ok := Expiry(signed(t, jwt.MapClaims{"exp": now.Unix() + 60}))
	assert.True(t, ok)
	assert.Equal(t, now.Add(time.Minute).Unix(), exp.Unix())
}
