package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	identityclient "github.com/mamadbah2/stylishcuts/pkg/clients/identity"
)

func staticProvider(t *testing.T) *StaticProvider {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("clippers"), bcrypt.MinCost)
	require.NoError(t, err)
	p, err := NewStaticProvider("Owner@Shop.test", string(hash))
	require.NoError(t, err)
	return p
}

func TestGateSignInAndOut(t *testing.T) {
	gate := NewGate(staticProvider(t), zaptest.NewLogger(t))
	_, ok := gate.CurrentPrincipal()
	assert.False(t, ok)

	var events []bool
	cancel := gate.OnPrincipalChange(func(_ Principal, present bool) { events = append(events, present) })

	p, err := gate.SignIn(context.Background(), " owner@shop.test ", "clippers")
	require.NoError(t, err)
	assert.Equal(t, "owner@shop.test", p.Email)

	current, ok := gate.CurrentPrincipal()
	require.True(t, ok)
	assert.Equal(t, p.UID, current.UID)

	gate.SignOut()
	gate.SignOut()
	_, ok = gate.CurrentPrincipal()
	assert.False(t, ok)
	assert.Equal(t, []bool{true, false}, events)

	cancel()
	_, err = gate.SignIn(context.Background(), "owner@shop.test", "clippers")
	require.NoError(t, err)
	assert.Len(t, events, 2, "cancelled listeners are not called")
}

func TestGateRejectsBadCredentials(t *testing.T) {
	gate := NewGate(staticProvider(t), nil)

	_, err := gate.SignIn(context.Background(), "owner@shop.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = gate.SignIn(context.Background(), "someone@else.test", "clippers")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = gate.SignIn(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, ok := gate.CurrentPrincipal()
	assert.False(t, ok)
}

func TestStaticProviderRejectsBadHash(t *testing.T) {
	_, err := NewStaticProvider("owner@shop.test", "plain-text")
	assert.Error(t, err)
}

type fakeClient struct{}

func (fakeClient) SignInWithPassword(_ context.Context, email, password string) (*identityclient.SignInResponse, error) {
	if password != "ok" {
		return nil, identityclient.ErrInvalidCredentials
	}
	return &identityclient.SignInResponse{LocalID: "uid-9", Email: email, IDToken: "tok"}, nil
}

func TestFirebaseProvider(t *testing.T) {
	p := NewFirebaseProvider(fakeClient{})
	principal, err := p.SignIn(context.Background(), "a@b.test", "ok")
	require.NoError(t, err)
	assert.Equal(t, "uid-9", principal.UID)
	assert.Equal(t, "tok", principal.Token)

	_, err = p.SignIn(context.Background(), "a@b.test", "no")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
