// Package session keeps one workspace per browser: its identity gate, live
// dashboard, forms, editor and view router.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/service/dashboard"
	"github.com/mamadbah2/stylishcuts/internal/service/editor"
	"github.com/mamadbah2/stylishcuts/internal/service/entry"
	"github.com/mamadbah2/stylishcuts/internal/service/identity"
	"github.com/mamadbah2/stylishcuts/internal/service/viewrouter"
)

// Workspace limits.
const (
	// DefaultTTL is how long an idle workspace survives.
	DefaultTTL = 12 * time.Hour
	// DefaultDashboardIdle is how long an idle workspace keeps its live subscriptions.
	DefaultDashboardIdle = 15 * time.Minute
	// DefaultMaxWorkspaces caps live workspaces; the least recently used goes first.
	DefaultMaxWorkspaces = 5000
)

// Store is everything a workspace reads from and writes to.
type Store interface {
	dashboard.Source
	editor.Store
	entry.SalesSink
	entry.ExpenseSink
}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Kind    string
	Message string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the clock used for the splash and idle expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithDashboardIdle overrides DefaultDashboardIdle.
func WithDashboardIdle(idle time.Duration) Option {
	return func(m *Manager) {
		if idle > 0 {
			m.dashIdle = idle
		}
	}
}

// WithMaxWorkspaces overrides DefaultMaxWorkspaces.
func WithMaxWorkspaces(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.max = n
		}
	}
}

// Manager owns every live workspace.
type Manager struct {
	store    Store
	provider identity.Provider
	views    viewrouter.Config
	ttl      time.Duration
	dashIdle time.Duration
	max      int
	now      func() time.Time
	logger   *zap.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewManager returns an empty manager.
func NewManager(store Store, provider identity.Provider, views viewrouter.Config, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:      store,
		provider:   provider,
		views:      views,
		ttl:        DefaultTTL,
		dashIdle:   DefaultDashboardIdle,
		max:        DefaultMaxWorkspaces,
		now:        time.Now,
		logger:     logger,
		workspaces: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL is the idle lifetime of a workspace.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Now is the manager's clock.
func (m *Manager) Now() time.Time { return m.now() }

// Get returns the live workspace for id and marks it as used.
func (m *Manager) Get(id string) (*Workspace, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, false
	}
	ws.touch(m.now())
	return ws, true
}

// Create starts a new workspace. At the cap, the least recently used workspace
// is closed to make room.
func (m *Manager) Create() *Workspace {
	ws := newWorkspace(uuid.NewString(), m)

	m.mu.Lock()
	var evicted *Workspace
	if len(m.workspaces) >= m.max {
		for _, other := range m.workspaces {
			if evicted == nil || other.lastSeen().Before(evicted.lastSeen()) {
				evicted = other
			}
		}
		delete(m.workspaces, evicted.ID)
	}
	m.workspaces[ws.ID] = ws
	m.mu.Unlock()

	if evicted != nil {
		evicted.close()
		m.logger.Info("workspace evicted at capacity", zap.String("session", evicted.ID), zap.Int("max", m.max))
	}
	m.logger.Debug("workspace created", zap.String("session", ws.ID))
	return ws
}

// Len is the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Sweep closes every workspace idle for longer than the TTL and returns how many
// went. Workspaces idle for longer than the dashboard idle time keep their state
// but drop their live subscriptions until the browser comes back.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var expired, dormant []*Workspace
	for id, ws := range m.workspaces {
		idle := now.Sub(ws.lastSeen())
		switch {
		case idle > m.ttl:
			expired = append(expired, ws)
			delete(m.workspaces, id)
		case idle > m.dashIdle:
			dormant = append(dormant, ws)
		}
	}
	m.mu.Unlock()

	for _, ws := range expired {
		ws.close()
	}
	for _, ws := range dormant {
		ws.releaseDashboard()
	}
	return len(expired)
}

// Close closes every workspace.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = make(map[string]*Workspace)
	m.mu.Unlock()

	for _, ws := range all {
		ws.close()
	}
}

// Workspace is the server-side state of one browser.
type Workspace struct {
	ID       string
	Gate     *identity.Gate
	Sales    *entry.SalesForm
	Expenses *entry.ExpenseForm

	m              *Manager
	logger         *zap.Logger
	cancelListener func()

	mu       sync.Mutex
	seen     time.Time
	router   *viewrouter.Router
	routedAt time.Time
	editor   *editor.Editor
	dash     *dashboard.Dashboard
	flashes  []Flash
	closed   bool
}

func newWorkspace(id string, m *Manager) *Workspace {
	logger := m.logger.With(zap.String("session", id))
	ws := &Workspace{
		ID:       id,
		Gate:     identity.NewGate(m.provider, logger.Named("identity")),
		Sales:    entry.NewSalesForm(m.store, entry.WithClock(m.now), entry.WithLogger(logger.Named("entry"))),
		Expenses: entry.NewExpenseForm(m.store, entry.WithClock(m.now), entry.WithLogger(logger.Named("entry"))),
		m:        m,
		logger:   logger,
		seen:     m.now(),
	}
	ws.editor = editor.New(m.store, false, logger.Named("editor"))
	ws.cancelListener = ws.Gate.OnPrincipalChange(ws.principalChanged)
	return ws
}

func (ws *Workspace) touch(now time.Time) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.seen = now
}

func (ws *Workspace) lastSeen() time.Time {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.seen
}

func (ws *Workspace) principalChanged(_ identity.Principal, present bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.router != nil {
		ws.router.PrincipalChanged(present)
	}
	ws.rebuildEditorLocked(present)
}

// rebuildEditorLocked grants the admin capability only on the admin branch with a principal.
func (ws *Workspace) rebuildEditorLocked(principal bool) {
	admin := principal && ws.router != nil && ws.router.AdminBranch()
	if ws.editor.Admin() == admin {
		return
	}
	ws.editor = editor.New(ws.m.store, admin, ws.logger.Named("editor"))
}

// Navigate routes the browser to path. Arriving on the other branch starts a new
// router, which shows the welcome splash again.
func (ws *Workspace) Navigate(path string) *viewrouter.Router {
	_, principal := ws.Gate.CurrentPrincipal()

	ws.mu.Lock()
	defer ws.mu.Unlock()
	admin := viewrouter.IsAdminPath(path, ws.m.views.AdminPath)
	if ws.router == nil || ws.router.AdminBranch() != admin {
		ws.router = viewrouter.New(path, principal, ws.m.views)
		ws.routedAt = ws.m.now()
		ws.rebuildEditorLocked(principal)
	}
	return ws.router
}

// Screen advances the splash and returns the screen together with the time spent on
// the current branch.
func (ws *Workspace) Screen() (viewrouter.View, time.Duration) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.router == nil {
		return viewrouter.Welcome, 0
	}
	elapsed := ws.m.now().Sub(ws.routedAt)
	return ws.router.Tick(elapsed), elapsed
}

// Router returns the current view router, if the browser navigated anywhere yet.
func (ws *Workspace) Router() (*viewrouter.Router, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.router, ws.router != nil
}

// SignOut drops the principal and returns where the browser goes next.
func (ws *Workspace) SignOut() string {
	ws.Gate.SignOut()

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.router == nil {
		return viewrouter.HomePath
	}
	return ws.router.SignOut()
}

// Editor returns the record editor for the current branch and principal.
func (ws *Workspace) Editor() *editor.Editor {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.editor
}

// Dashboard returns the live dashboard, opening it on first use. It stays open
// until the workspace expires.
func (ws *Workspace) Dashboard(ctx context.Context) (*dashboard.Dashboard, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return nil, fmt.Errorf("open dashboard: workspace %s expired", ws.ID)
	}
	if ws.dash != nil {
		return ws.dash, nil
	}
	// Subscriptions outlive the request that opened them.
	d, err := dashboard.Open(context.WithoutCancel(ctx), ws.m.store, ws.logger.Named("dashboard"))
	if err != nil {
		return nil, err
	}
	ws.dash = d
	return d, nil
}

// HasDashboard reports whether live subscriptions are open.
func (ws *Workspace) HasDashboard() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.dash != nil
}

func (ws *Workspace) releaseDashboard() {
	ws.mu.Lock()
	d := ws.dash
	ws.dash = nil
	ws.mu.Unlock()

	if d != nil {
		d.Close()
		ws.logger.Debug("dashboard released after idle")
	}
}

// AddFlash queues a message for the next page.
func (ws *Workspace) AddFlash(kind, message string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.flashes = append(ws.flashes, Flash{Kind: kind, Message: message})
}

// TakeFlashes returns and clears the queued messages.
func (ws *Workspace) TakeFlashes() []Flash {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	out := ws.flashes
	ws.flashes = nil
	return out
}

func (ws *Workspace) close() {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return
	}
	ws.closed = true
	d := ws.dash
	ws.dash = nil
	ws.mu.Unlock()

	ws.cancelListener()
	if d != nil {
		d.Close()
	}
	ws.logger.Debug("workspace closed")
}

// Closed reports whether the workspace expired.
func (ws *Workspace) Closed() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.closed
}
