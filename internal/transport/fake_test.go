package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffline/staffline-api/internal/endpoint"
)

func TestFake_UnsetHandlerReturnsEmptyObject(t *testing.T) {
	f := NewFake(nil)
	res, err := f.Put(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, res)
}

func TestFake_HandlersAndCalls(t *testing.T) {
	f := NewFake(map[endpoint.Verb]Handler{
		endpoint.POST: func(_ context.Context, path string, payload any) (any, error) {
			return map[string]any{"path": path, "payload": payload}, nil
		},
	})
	f.Handle(endpoint.DELETE, func(context.Context, string, any) (any, error) {
		return nil, &Error{Message: "gone", Status: 410}
	})

	res, err := f.Post(context.Background(), "/auth/login", "p")
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", res.(map[string]any)["path"])

	_, err = f.Delete(context.Background(), "/users/1", nil)
	assert.Equal(t, 410, StatusOf(err))

	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, Call{Verb: endpoint.POST, Path: "/auth/login", Payload: "p"}, calls[0])
	assert.Equal(t, endpoint.DELETE, calls[1].Verb)
}
