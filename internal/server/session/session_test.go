package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/stylishcuts/internal/repository/memory"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
	"github.com/mamadbah2/stylishcuts/internal/service/identity"
	"github.com/mamadbah2/stylishcuts/internal/service/viewrouter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T, opts ...Option) (*Manager, *clock) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	provider, err := identity.NewStaticProvider("owner@stylishcuts.test", string(hash))
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	store := memory.New(logger)
	t.Cleanup(store.Close)

	clk := &clock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clk.Now), WithTTL(time.Hour)}, opts...)
	m := NewManager(records.NewAdapter(store, logger), provider, viewrouter.Config{}, logger, opts...)
	t.Cleanup(m.Close)
	return m, clk
}

func TestWelcomeThenClient(t *testing.T) {
	m, clk := newManager(t)
	ws := m.Create()

	ws.Navigate("/")
	view, _ := ws.Screen()
	assert.Equal(t, viewrouter.Welcome, view)

	clk.Advance(viewrouter.DefaultWelcomeDuration)
	view, elapsed := ws.Screen()
	assert.Equal(t, viewrouter.Client, view)
	assert.Equal(t, viewrouter.DefaultWelcomeDuration, elapsed)
	assert.False(t, ws.Editor().Admin())
}

func TestAdminCapabilityFollowsBranchAndPrincipal(t *testing.T) {
	m, clk := newManager(t)
	ws := m.Create()

	ws.Navigate("/admin")
	clk.Advance(5 * time.Second)
	view, _ := ws.Screen()
	assert.Equal(t, viewrouter.AdminLogin, view)
	assert.False(t, ws.Editor().Admin())

	_, err := ws.Gate.SignIn(context.Background(), "owner@stylishcuts.test", "secret")
	require.NoError(t, err)
	view, _ = ws.Screen()
	assert.Equal(t, viewrouter.AdminView, view)
	assert.True(t, ws.Editor().Admin())

	// The client branch never edits, even with a principal.
	ws.Navigate("/")
	assert.False(t, ws.Editor().Admin())
	view, _ = ws.Screen()
	assert.Equal(t, viewrouter.Welcome, view)

	ws.Navigate("/admin")
	assert.True(t, ws.Editor().Admin())
	assert.Equal(t, "/", ws.SignOut())
	assert.False(t, ws.Editor().Admin())
}

func TestSweepClosesIdleWorkspaces(t *testing.T) {
	m, clk := newManager(t)
	idle := m.Create()
	d, err := idle.Dashboard(context.Background())
	require.NoError(t, err)

	clk.Advance(45 * time.Minute)
	active := m.Create()
	clk.Advance(30 * time.Minute)

	assert.Equal(t, 1, m.Sweep(clk.Now()))
	assert.True(t, idle.Closed())
	assert.True(t, d.Closed())
	assert.False(t, active.Closed())

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	got, ok := m.Get(active.ID)
	require.True(t, ok)
	assert.Same(t, active, got)
	assert.Equal(t, 1, m.Len())

	_, err = idle.Dashboard(context.Background())
	assert.Error(t, err)
}

func TestSweepReleasesIdleDashboards(t *testing.T) {
	m, clk := newManager(t, WithDashboardIdle(10*time.Minute))
	ws := m.Create()
	ws.Navigate("/")
	ws.AddFlash(FlashSuccess, "kept")
	d, err := ws.Dashboard(context.Background())
	require.NoError(t, err)

	clk.Advance(11 * time.Minute)
	assert.Zero(t, m.Sweep(clk.Now()))
	assert.True(t, d.Closed())
	assert.False(t, ws.HasDashboard())
	assert.False(t, ws.Closed())

	got, ok := m.Get(ws.ID)
	require.True(t, ok)
	again, err := got.Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, d, again)
	assert.Len(t, got.TakeFlashes(), 1)
}

func TestCreateEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	m, clk := newManager(t, WithMaxWorkspaces(2))
	oldest := m.Create()
	clk.Advance(time.Minute)
	middle := m.Create()
	clk.Advance(time.Minute)
	_, ok := m.Get(oldest.ID)
	require.True(t, ok)
	clk.Advance(time.Minute)

	newest := m.Create()
	assert.Equal(t, 2, m.Len())
	assert.True(t, middle.Closed())
	assert.False(t, oldest.Closed())
	assert.False(t, newest.Closed())
	_, ok = m.Get(middle.ID)
	assert.False(t, ok)
}

func TestFlashesAreOneShot(t *testing.T) {
	m, _ := newManager(t)
	ws := m.Create()
	ws.AddFlash(FlashSuccess, "Sales record added successfully!")

	assert.Equal(t, []Flash{{Kind: FlashSuccess, Message: "Sales record added successfully!"}}, ws.TakeFlashes())
	assert.Empty(t, ws.TakeFlashes())
}
