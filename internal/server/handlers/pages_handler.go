package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/server/session"
	"github.com/mamadbah2/stylishcuts/internal/service/aggregation"
	"github.com/mamadbah2/stylishcuts/internal/service/dashboard"
	"github.com/mamadbah2/stylishcuts/internal/service/editor"
	"github.com/mamadbah2/stylishcuts/internal/service/viewrouter"
)

type welcomeView struct {
	RefreshAfter int
	MottoVisible bool
	MottoDelayMs int64
}

type salesFormView struct {
	Date       string
	Items      []models.Customer
	Total      float64
	Submitting bool
}

type expenseFormView struct {
	Date       string
	Amount     string
	Notes      string
	Submitting bool
}

type recordsView struct {
	Sales    []models.SalesRecord
	Expenses []models.ExpenseRecord
}

type page struct {
	Title     string
	Shop      string
	Branch    string
	AdminPath string
	Path      string
	Currency  string
	Flashes   []session.Flash

	Welcome welcomeView

	// Summary cards. Live names the SSE payload section that updates them.
	Live     string
	Summary  models.Summary
	Counts   bool
	Sales    []models.SalesRecord
	Expenses []models.ExpenseRecord
	Filter   aggregation.Filter

	Tab         string
	Services    []string
	SalesForm   salesFormView
	ExpenseForm expenseFormView

	Admin      bool
	SearchDate string
	Records    recordsView
	Editing    *editor.Session

	Email string
}

type pageOption func(*page)

func withTab(tab string) pageOption {
	return func(p *page) { p.Tab = tab }
}

func withExpenseAmount(raw string) pageOption {
	return func(p *page) { p.ExpenseForm.Amount = raw }
}

func withEmail(email string) pageOption {
	return func(p *page) { p.Email = email }
}

// Home serves both the client page and the admin page; the path picks the branch.
func (h *Handler) Home(c *gin.Context) {
	ws := workspace(c)
	ws.Navigate(c.Request.URL.Path)
	h.renderScreen(c, ws, http.StatusOK)
}

func (h *Handler) renderScreen(c *gin.Context, ws *session.Workspace, status int, opts ...pageOption) {
	view, elapsed := ws.Screen()
	if view == viewrouter.Welcome {
		h.renderWelcome(c, ws, status, elapsed)
		return
	}

	p := page{
		Title:     h.cfg.Shop + " - " + h.cfg.Branch,
		Shop:      h.cfg.Shop,
		Branch:    h.cfg.Branch,
		AdminPath: h.cfg.AdminPath,
		Currency:  models.CurrencySymbol,
		Services:  models.Services,
		Flashes:   ws.TakeFlashes(),
	}

	switch view {
	case viewrouter.AdminLogin:
		p.Title = "Admin Login - " + h.cfg.Shop
		for _, opt := range opts {
			opt(&p)
		}
		c.HTML(status, "login.html", p)
	case viewrouter.AdminView:
		h.renderAdmin(c, ws, status, p, opts)
	default:
		h.renderClient(c, ws, status, p, opts)
	}
}

func (h *Handler) renderWelcome(c *gin.Context, ws *session.Workspace, status int, elapsed time.Duration) {
	r, _ := ws.Router()
	w := welcomeView{
		RefreshAfter: int(math.Ceil(r.Remaining(elapsed).Seconds())),
		MottoVisible: r.ShowMotto(elapsed),
	}
	if w.RefreshAfter < 1 {
		w.RefreshAfter = 1
	}
	if !w.MottoVisible {
		w.MottoDelayMs = (r.MottoDelay() - elapsed).Milliseconds()
	}
	c.HTML(status, "welcome.html", page{
		Title:   h.cfg.Shop,
		Shop:    h.cfg.Shop,
		Branch:  h.cfg.Branch,
		Welcome: w,
	})
}

// liveDashboard opens the workspace dashboard and waits briefly for its first snapshots.
func (h *Handler) liveDashboard(c *gin.Context, ws *session.Workspace) (*dashboard.Dashboard, dashboard.View, error) {
	d, err := ws.Dashboard(c.Request.Context())
	if err != nil {
		return nil, dashboard.View{}, err
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	view, err := d.WaitReady(ctx)
	if err != nil {
		h.logger.Warn("rendering before records arrived", zap.Error(err))
	}
	return d, view, nil
}

func (h *Handler) renderClient(c *gin.Context, ws *session.Workspace, status int, p page, opts []pageOption) {
	d, _, err := h.liveDashboard(c, ws)
	if err != nil {
		h.logger.Error("dashboard unavailable", zap.Error(err))
		c.String(http.StatusServiceUnavailable, "Records are unavailable right now. Please try again.")
		return
	}
	sales, expenses := d.Records()

	p.Path = viewrouter.HomePath
	p.Live = "all_time"
	p.Summary = aggregation.FilterAndSummarize(sales, expenses, aggregation.None()).Summary

	p.Tab = c.Query("tab")
	switch p.Tab {
	case "sales", "expenses", "records":
	default:
		p.Tab = "sales"
	}

	p.SalesForm = salesFormView{
		Date:       ws.Sales.Date(),
		Items:      ws.Sales.Items(),
		Total:      ws.Sales.Total(),
		Submitting: ws.Sales.Submitting(),
	}
	date, amount, notes := ws.Expenses.Fields()
	p.ExpenseForm = expenseFormView{Date: date, Notes: notes, Submitting: ws.Expenses.Submitting()}
	if amount > 0 {
		p.ExpenseForm.Amount = models.FormatInput(amount)
	}

	ed := ws.Editor()
	p.Admin = ed.Admin()
	p.SearchDate = c.Query("search")
	p.Records.Sales, p.Records.Expenses = ed.Browse(sales, expenses, p.SearchDate)

	for _, opt := range opts {
		opt(&p)
	}
	c.HTML(status, "client.html", p)
}

func (h *Handler) renderAdmin(c *gin.Context, ws *session.Workspace, status int, p page, opts []pageOption) {
	d, view, err := h.liveDashboard(c, ws)
	if err != nil {
		h.logger.Error("dashboard unavailable", zap.Error(err))
		c.String(http.StatusServiceUnavailable, "Records are unavailable right now. Please try again.")
		return
	}
	sales, expenses := d.Records()

	p.Title = "Admin Dashboard - " + h.cfg.Shop
	p.Path = h.cfg.AdminPath
	p.Live = "filtered"
	p.Summary = view.Summary
	p.Counts = true
	p.Sales = view.Sales
	p.Expenses = view.Expenses
	p.Filter = view.Filter

	ed := ws.Editor()
	p.Admin = ed.Admin()
	p.SearchDate = c.Query("search")
	p.Records.Sales, p.Records.Expenses = ed.Browse(sales, expenses, p.SearchDate)
	if s, ok := ed.Current(); ok {
		p.Editing = &s
	}

	for _, opt := range opts {
		opt(&p)
	}
	c.HTML(status, "admin.html", p)
}

// Login signs the admin in.
func (h *Handler) Login(c *gin.Context) {
	ws := workspace(c)
	email := c.PostForm("email")
	if _, err := ws.Gate.SignIn(c.Request.Context(), email, c.PostForm("password")); err != nil {
		h.fail(c, err, "Sign-in is unavailable right now. Please try again.", withEmail(email))
		return
	}
	c.Redirect(http.StatusSeeOther, h.cfg.AdminPath)
}

// Logout signs the admin out and sends the browser home.
func (h *Handler) Logout(c *gin.Context) {
	ws := workspace(c)
	c.Redirect(http.StatusSeeOther, ws.SignOut())
}
