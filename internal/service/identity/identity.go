// Package identity gates the admin area behind an external identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	identityclient "github.com/mamadbah2/stylishcuts/pkg/clients/identity"
)

// ErrInvalidCredentials is returned when sign-in is refused.
var ErrInvalidCredentials = identityclient.ErrInvalidCredentials

// Principal is a signed-in administrator.
type Principal struct {
	UID        string
	Email      string
	Token      string
	SignedInAt time.Time
}

// Provider verifies credentials.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Principal, error)
}

// ChangeFunc observes sign-in and sign-out transitions.
type ChangeFunc func(p Principal, present bool)

// Gate tracks the principal of one browser session.
type Gate struct {
	provider Provider
	logger   *zap.Logger

	mu        sync.Mutex
	principal *Principal
	listeners map[uint64]ChangeFunc
	next      uint64
}

// NewGate returns a gate with no principal.
func NewGate(provider Provider, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{provider: provider, logger: logger, listeners: make(map[uint64]ChangeFunc)}
}

// CurrentPrincipal returns the signed-in principal, if any.
func (g *Gate) CurrentPrincipal() (Principal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.principal == nil {
		return Principal{}, false
	}
	return *g.principal, true
}

// OnPrincipalChange registers fn for every transition and returns its cancel function.
func (g *Gate) OnPrincipalChange(fn ChangeFunc) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	g.listeners[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.listeners, id)
	}
}

// SignIn verifies the credentials and records the principal.
func (g *Gate) SignIn(ctx context.Context, email, password string) (Principal, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Principal{}, fmt.Errorf("sign in: %w", ErrInvalidCredentials)
	}
	p, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		g.logger.Warn("admin sign-in failed", zap.String("email", email), zap.Error(err))
		return Principal{}, fmt.Errorf("sign in: %w", err)
	}
	if p.SignedInAt.IsZero() {
		p.SignedInAt = time.Now()
	}

	g.mu.Lock()
	g.principal = &p
	listeners := g.snapshotLocked()
	g.mu.Unlock()

	g.logger.Info("admin signed in", zap.String("uid", p.UID))
	for _, fn := range listeners {
		fn(p, true)
	}
	return p, nil
}

// SignOut drops the principal. It is a no-op when nobody is signed in.
func (g *Gate) SignOut() {
	g.mu.Lock()
	if g.principal == nil {
		g.mu.Unlock()
		return
	}
	p := *g.principal
	g.principal = nil
	listeners := g.snapshotLocked()
	g.mu.Unlock()

	g.logger.Info("admin signed out", zap.String("uid", p.UID))
	for _, fn := range listeners {
		fn(p, false)
	}
}

func (g *Gate) snapshotLocked() []ChangeFunc {
	out := make([]ChangeFunc, 0, len(g.listeners))
	for _, fn := range g.listeners {
		out = append(out, fn)
	}
	return out
}

// FirebaseProvider signs in against Firebase Identity Toolkit.
type FirebaseProvider struct {
	client identityclient.Client
}

// NewFirebaseProvider wraps an Identity Toolkit client.
func NewFirebaseProvider(client identityclient.Client) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

// SignIn implements Provider.
func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (Principal, error) {
	resp, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UID: resp.LocalID, Email: resp.Email, Token: resp.IDToken, SignedInAt: time.Now()}, nil
}

// StaticProvider accepts a single configured email with a bcrypt password hash.
type StaticProvider struct {
	email string
	hash  []byte
}

// NewStaticProvider validates the hash up front.
func NewStaticProvider(email, passwordHash string) (*StaticProvider, error) {
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	return &StaticProvider{email: strings.ToLower(strings.TrimSpace(email)), hash: []byte(passwordHash)}, nil
}

// SignIn implements Provider.
func (p *StaticProvider) SignIn(_ context.Context, email, password string) (Principal, error) {
	if strings.ToLower(strings.TrimSpace(email)) != p.email {
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(p.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("compare password: %w", err)
	}
	return Principal{UID: "static:" + p.email, Email: p.email, SignedInAt: time.Now()}, nil
}
