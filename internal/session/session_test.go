package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = User{ID: 1, Email: "a@b.com", Name: "Ada", Role: "manager", CompanyID: 3}

func TestManager_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStorage())

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, m.Save(ctx, Session{Token: "t", User: ada}))

	s, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", s.Token)
	assert.Equal(t, ada, s.User)

	token, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", token)

	u, err := m.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	require.NoError(t, m.Clear(ctx))
	_, err = m.Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	token, err = m.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestManager_SaveRejectsEmptyToken(t *testing.T) {
	m := NewManager(NewMemoryStorage())
	assert.Error(t, m.Save(context.Background(), Session{User: ada}))
}

func TestManager_PartialPairIsNoSession(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"token only", TokenKey, "t"},
		{"user only", UserKey, `{"id":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := NewMemoryStorage()
			require.NoError(t, st.Set(ctx, tt.key, tt.val))

			_, err := NewManager(st).Load(ctx)
			assert.ErrorIs(t, err, ErrNoSession)

			_, err = st.Get(ctx, tt.key)
			assert.ErrorIs(t, err, ErrKeyNotFound, "orphan entry is removed")
		})
	}
}

func TestManager_TokenWithoutUser(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	require.NoError(t, st.Set(ctx, TokenKey, "orphan"))

	token, err := NewManager(st).Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = st.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestManager_UnreadableUser(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	require.NoError(t, st.Set(ctx, TokenKey, "t"))
	require.NoError(t, st.Set(ctx, UserKey, "{not json"))

	_, err := NewManager(st).Load(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = st.Get(ctx, TokenKey)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

type failingStorage struct{ MemoryStorage }

func (*failingStorage) Get(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func TestManager_StorageError(t *testing.T) {
	m := NewManager(&failingStorage{})
	_, err := m.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)

	_, err = m.Token(context.Background())
	assert.Error(t, err)
}
