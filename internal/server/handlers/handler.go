package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/server/session"
	"github.com/mamadbah2/stylishcuts/internal/service/dashboard"
	"github.com/mamadbah2/stylishcuts/internal/service/editor"
	"github.com/mamadbah2/stylishcuts/internal/service/entry"
	"github.com/mamadbah2/stylishcuts/internal/service/export"
	"github.com/mamadbah2/stylishcuts/internal/service/identity"
)

// CookieName carries the workspace id.
const CookieName = "stylishcuts_session"

const (
	workspaceKey = "workspace"
	readyTimeout = 3 * time.Second
)

// RecordLoader reads both collections once, for the JSON API.
type RecordLoader interface {
	LoadSales(ctx context.Context) ([]models.SalesRecord, error)
	LoadExpenses(ctx context.Context) ([]models.ExpenseRecord, error)
}

// Config holds what pages print and where the admin area lives.
type Config struct {
	Shop         string
	Branch       string
	AdminPath    string
	SecureCookie bool
}

// Handler serves the shop pages, the live event stream and the JSON API.
type Handler struct {
	cfg      Config
	sessions *session.Manager
	loader   RecordLoader
	exporter *export.Exporter
	logger   *zap.Logger
}

// New constructs the HTTP handler adapter.
func New(cfg Config, sessions *session.Manager, loader RecordLoader, exporter *export.Exporter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{cfg: cfg, sessions: sessions, loader: loader, exporter: exporter, logger: logger}
}

// Session attaches the browser's workspace, creating one for new visitors.
func (h *Handler) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(CookieName)
		ws, ok := h.sessions.Get(id)
		if !ok {
			ws = h.sessions.Create()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, ws.ID, int(h.sessions.TTL().Seconds()), "/", "", h.cfg.SecureCookie, true)
		c.Set(workspaceKey, ws)
		c.Next()
	}
}

func workspace(c *gin.Context) *session.Workspace {
	return c.MustGet(workspaceKey).(*session.Workspace)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, entry.ErrLastItem),
		errors.Is(err, entry.ErrNoSuchItem):
		return http.StatusUnprocessableEntity
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, models.ErrRecordNotFound),
		errors.Is(err, editor.ErrNoSuchCustomer):
		return http.StatusNotFound
	case errors.Is(err, entry.ErrSubmitInProgress),
		errors.Is(err, editor.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, models.ErrPartialFailure):
		return http.StatusInternalServerError
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// userMessage turns err into something a shop employee can act on. failure is
// used for store and unexpected errors.
func userMessage(err error, failure string) string {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		switch verr.Field {
		case "customers":
			return "Please add at least one customer with a valid name and price."
		case "amount":
			return "Please enter a valid expense amount."
		case "price":
			return "Please enter a valid price for every customer."
		case "date":
			return "Please choose a date."
		default:
			return verr.Error()
		}
	case errors.Is(err, entry.ErrLastItem):
		return "At least one customer row is required."
	case errors.Is(err, entry.ErrSubmitInProgress):
		return "A submission is already in progress."
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, models.ErrNotPermitted):
		return "Please sign in as admin to do that."
	case errors.Is(err, models.ErrRecordNotFound):
		return "That record no longer exists."
	case errors.Is(err, editor.ErrNoSession):
		return "That record is not being edited."
	case errors.Is(err, models.ErrPartialFailure):
		return "Sales records were cleared but expense records were not. Records are now inconsistent; please try again."
	default:
		return failure
	}
}

// fail flashes err and re-renders the current screen with the mapped status.
func (h *Handler) fail(c *gin.Context, err error, failure string, opts ...pageOption) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	} else {
		h.logger.Info("request rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	ws := workspace(c)
	ws.AddFlash(session.FlashError, userMessage(err, failure))
	h.renderScreen(c, ws, status, opts...)
}

func (h *Handler) redirect(c *gin.Context, ws *session.Workspace, kind, message, target string) {
	if message != "" {
		ws.AddFlash(kind, message)
	}
	c.Redirect(http.StatusSeeOther, target)
}

// settle holds the redirect after a write until the workspace dashboard shows it,
// so the next page lists what was just saved. It gives up after readyTimeout.
func (h *Handler) settle(c *gin.Context, ws *session.Workspace, applied func(d *dashboard.Dashboard) bool) {
	d, err := ws.Dashboard(c.Request.Context())
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if _, err := d.WaitUntil(ctx, func(dashboard.View) bool { return applied(d) }); err != nil {
		h.logger.Debug("redirecting before the write reached the dashboard", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
}
