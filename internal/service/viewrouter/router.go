// Package viewrouter decides which screen a visitor sees.
package viewrouter

import (
	"strings"
	"sync"
	"time"
)

// View is one of the four screens.
type View int

const (
	Welcome View = iota
	Client
	AdminLogin
	AdminView
)

func (v View) String() string {
	switch v {
	case Welcome:
		return "welcome"
	case Client:
		return "client"
	case AdminLogin:
		return "admin_login"
	case AdminView:
		return "admin"
	default:
		return "unknown"
	}
}

// Defaults for the splash timing.
const (
	DefaultWelcomeDuration = 4 * time.Second
	DefaultMottoDelay      = 1500 * time.Millisecond
	DefaultAdminPath       = "/admin"
	HomePath               = "/"
)

// Config tunes the router.
type Config struct {
	AdminPath       string
	WelcomeDuration time.Duration
	MottoDelay      time.Duration
}

func (c Config) withDefaults() Config {
	if c.AdminPath == "" {
		c.AdminPath = DefaultAdminPath
	}
	if c.WelcomeDuration <= 0 {
		c.WelcomeDuration = DefaultWelcomeDuration
	}
	if c.MottoDelay <= 0 {
		c.MottoDelay = DefaultMottoDelay
	}
	if c.MottoDelay > c.WelcomeDuration {
		c.MottoDelay = c.WelcomeDuration
	}
	return c
}

// Router is the welcome → client | admin login → admin view state machine.
// The branch is fixed when the router is created.
type Router struct {
	cfg   Config
	admin bool

	mu        sync.Mutex
	welcomed  bool
	principal bool
}

// New starts a router on the welcome screen for the requested path.
func New(path string, principal bool, cfg Config) *Router {
	cfg = cfg.withDefaults()
	return &Router{
		cfg:       cfg,
		admin:     IsAdminPath(path, cfg.AdminPath),
		principal: principal,
	}
}

// IsAdminPath reports whether path designates the admin area.
func IsAdminPath(path, adminPath string) bool {
	if adminPath == "" {
		adminPath = DefaultAdminPath
	}
	path = strings.TrimSuffix(path, "/")
	return path == strings.TrimSuffix(adminPath, "/")
}

// AdminBranch reports whether this router serves the admin area.
func (r *Router) AdminBranch() bool { return r.admin }

// WelcomeDuration is how long the splash stays up.
func (r *Router) WelcomeDuration() time.Duration { return r.cfg.WelcomeDuration }

// MottoDelay is when the motto line appears on the splash.
func (r *Router) MottoDelay() time.Duration { return r.cfg.MottoDelay }

// View returns the current screen.
func (r *Router) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view()
}

func (r *Router) view() View {
	switch {
	case !r.welcomed:
		return Welcome
	case !r.admin:
		return Client
	case r.principal:
		return AdminView
	default:
		return AdminLogin
	}
}

// Tick reports the time since the splash appeared. The splash ends once elapsed
// reaches the welcome duration.
func (r *Router) Tick(elapsed time.Duration) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.welcomed && elapsed >= r.cfg.WelcomeDuration {
		r.welcomed = true
	}
	return r.view()
}

// Remaining is how much of the splash is left after elapsed.
func (r *Router) Remaining(elapsed time.Duration) time.Duration {
	if left := r.cfg.WelcomeDuration - elapsed; left > 0 {
		return left
	}
	return 0
}

// ShowMotto reports whether the motto line is visible at elapsed.
func (r *Router) ShowMotto(elapsed time.Duration) bool {
	return elapsed >= r.cfg.MottoDelay
}

// PrincipalChanged records a sign-in or sign-out.
func (r *Router) PrincipalChanged(present bool) View {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = present
	return r.view()
}

// SignOut drops the principal and returns the path the browser must be sent to.
func (r *Router) SignOut() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = false
	return HomePath
}
