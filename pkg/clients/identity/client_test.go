package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stylishcuts/internal/config"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"localId":"uid-1","email":"owner@shop.test","idToken":"tok","expiresIn":"3600","registered":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSignInWithPassword(t *testing.T) {
	srv := newServer(t)
	client := NewClient(config.AuthConfig{FirebaseBaseURL: srv.URL + "/", FirebaseAPIKey: "test-key"})

	resp, err := client.SignInWithPassword(context.Background(), "owner@shop.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", resp.LocalID)
	assert.Equal(t, "tok", resp.IDToken)

	_, err = client.SignInWithPassword(context.Background(), "owner@shop.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
