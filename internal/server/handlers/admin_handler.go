package handlers

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/server/session"
	"github.com/mamadbah2/stylishcuts/internal/service/confirm"
	"github.com/mamadbah2/stylishcuts/internal/service/dashboard"
	"github.com/mamadbah2/stylishcuts/internal/service/editor"
	"github.com/mamadbah2/stylishcuts/internal/service/export"
)

func checked(c *gin.Context, field string) bool {
	return c.PostForm(field) == "yes"
}

// adminTools returns the editor and dashboard of a signed-in admin.
func (h *Handler) adminTools(c *gin.Context) (*editor.Editor, *dashboard.Dashboard, error) {
	ws := workspace(c)
	ed := ws.Editor()
	if !ed.Admin() {
		return nil, nil, models.ErrNotPermitted
	}
	d, err := ws.Dashboard(c.Request.Context())
	if err != nil {
		return nil, nil, err
	}
	return ed, d, nil
}

func recordRef(c *gin.Context) (models.RecordRef, error) {
	coll, err := models.ParseCollection(c.Param("collection"))
	if err != nil {
		return models.RecordRef{}, fmt.Errorf("%w: %w", models.ErrRecordNotFound, err)
	}
	return models.RecordRef{Collection: coll, ID: c.Param("id")}, nil
}

// EditRecord opens a record for inline editing.
func (h *Handler) EditRecord(c *gin.Context) {
	ed, d, err := h.adminTools(c)
	if err == nil {
		var ref models.RecordRef
		if ref, err = recordRef(c); err == nil {
			err = beginEdit(ed, d, ref)
		}
	}
	if err != nil {
		h.fail(c, err, "Could not open that record.")
		return
	}
	c.Redirect(http.StatusSeeOther, h.cfg.AdminPath)
}

func beginEdit(ed *editor.Editor, d *dashboard.Dashboard, ref models.RecordRef) error {
	if ref.Collection == models.CollectionSales {
		rec, ok := d.FindSales(ref.ID)
		if !ok {
			return fmt.Errorf("edit sales %s: %w", ref.ID, models.ErrRecordNotFound)
		}
		return ed.BeginSales(rec)
	}
	rec, ok := d.FindExpense(ref.ID)
	if !ok {
		return fmt.Errorf("edit expense %s: %w", ref.ID, models.ErrRecordNotFound)
	}
	return ed.BeginExpense(rec)
}

// SaveRecord applies the posted fields to the open record and writes it.
func (h *Handler) SaveRecord(c *gin.Context) {
	ed, _, err := h.adminTools(c)
	if err == nil {
		var ref models.RecordRef
		if ref, err = recordRef(c); err == nil {
			err = applyEdit(c, ed, ref)
		}
	}
	var saved editor.Session
	if err == nil {
		saved, _ = ed.Current()
		err = ed.Save(c.Request.Context())
	}
	if err != nil {
		h.fail(c, err, "Failed to update record. Please try again.")
		return
	}
	ws := workspace(c)
	h.settle(c, ws, func(d *dashboard.Dashboard) bool { return reflects(d, saved) })
	h.redirect(c, ws, session.FlashSuccess, "Record updated.", h.cfg.AdminPath)
}

// reflects reports whether the mirror holds the saved fields of s.
func reflects(d *dashboard.Dashboard, s editor.Session) bool {
	if s.Ref.Collection == models.CollectionExpenses {
		got, ok := d.FindExpense(s.Ref.ID)
		return ok && got == s.Expense
	}
	got, ok := d.FindSales(s.Ref.ID)
	return ok && got.Date == s.Sales.Date && got.TotalSales == s.Sales.TotalSales &&
		slices.Equal(got.Customers, s.Sales.Customers)
}

func missing(d *dashboard.Dashboard, ref models.RecordRef) bool {
	if ref.Collection == models.CollectionExpenses {
		_, ok := d.FindExpense(ref.ID)
		return !ok
	}
	_, ok := d.FindSales(ref.ID)
	return !ok
}

func applyEdit(c *gin.Context, ed *editor.Editor, ref models.RecordRef) error {
	if !ed.Editing(ref) {
		return editor.ErrNoSession
	}

	if ref.Collection == models.CollectionExpenses {
		amount, err := models.ParseAmount(c.PostForm("amount"))
		if err != nil {
			return err
		}
		if err := ed.SetDate(c.PostForm("date")); err != nil {
			return err
		}
		if err := ed.SetAmount(amount); err != nil {
			return err
		}
		return ed.SetNotes(c.PostForm("notes"))
	}

	customers, err := postedEditCustomers(c)
	if err != nil {
		return err
	}
	if err := ed.SetDate(c.PostForm("date")); err != nil {
		return err
	}
	for i, cust := range customers {
		if err := ed.SetCustomer(i, cust); err != nil {
			return err
		}
	}
	return nil
}

// postedEditCustomers parses every posted line before any of them reaches the
// scratch copy, so a bad price leaves the open record untouched.
func postedEditCustomers(c *gin.Context) ([]models.Customer, error) {
	names := c.PostFormArray("name")
	services := c.PostFormArray("service")
	prices := c.PostFormArray("price")

	customers := make([]models.Customer, len(names))
	for i, name := range names {
		customers[i].Name = name
		if i < len(services) {
			customers[i].Service = services[i]
		}
		if i < len(prices) {
			price, err := models.ParseAmount(prices[i])
			if err != nil {
				return nil, models.Invalid("price", fmt.Sprintf("line %d: %v", i+1, err))
			}
			customers[i].Price = price
		}
	}
	return customers, nil
}

// CancelEdit discards the open edit.
func (h *Handler) CancelEdit(c *gin.Context) {
	ws := workspace(c)
	ws.Editor().Cancel()
	c.Redirect(http.StatusSeeOther, h.cfg.AdminPath)
}

// DeleteRecord removes a record once its confirmation box was ticked.
func (h *Handler) DeleteRecord(c *gin.Context) {
	ws := workspace(c)
	ref, err := recordRef(c)
	if err != nil {
		h.fail(c, err, "Could not delete that record.")
		return
	}
	deleted, err := ws.Editor().Delete(c.Request.Context(), ref, confirm.NewAnswers(checked(c, "confirm")))
	if err != nil {
		h.fail(c, err, "Failed to delete record. Please try again.")
		return
	}
	if !deleted {
		h.redirect(c, ws, session.FlashError, "Deletion cancelled. Tick the confirmation box to delete.", h.cfg.AdminPath)
		return
	}
	h.settle(c, ws, func(d *dashboard.Dashboard) bool { return missing(d, ref) })
	h.redirect(c, ws, session.FlashSuccess, "Record deleted.", h.cfg.AdminPath)
}

// Filter sets the date or month filter, or clears it. Setting one clears the other.
func (h *Handler) Filter(c *gin.Context) {
	_, d, err := h.adminTools(c)
	if err != nil {
		h.fail(c, err, "Could not apply the filter.")
		return
	}
	date, month := c.PostForm("date"), c.PostForm("month")
	switch {
	case c.PostForm("clear") != "":
		d.ClearFilters()
	case date != "":
		d.SetDate(date)
	case month != "":
		d.SetMonth(month)
	default:
		d.ClearFilters()
	}
	c.Redirect(http.StatusSeeOther, h.cfg.AdminPath)
}

// ClearAll deletes every record once both confirmation boxes were ticked.
func (h *Handler) ClearAll(c *gin.Context) {
	ws := workspace(c)
	_, d, err := h.adminTools(c)
	if err != nil {
		h.fail(c, err, "Error clearing records. Please try again.")
		return
	}
	answers := confirm.NewAnswers(checked(c, "confirm"), checked(c, "confirm_final"))
	cleared, err := d.ClearAll(c.Request.Context(), answers)
	if err != nil {
		h.fail(c, err, "Error clearing records. Please try again.")
		return
	}
	if !cleared {
		h.redirect(c, ws, session.FlashError, "Nothing was deleted. Tick both confirmation boxes to clear all records.", h.cfg.AdminPath)
		return
	}
	h.settle(c, ws, func(d *dashboard.Dashboard) bool {
		sales, expenses := d.Records()
		return len(sales) == 0 && len(expenses) == 0
	})
	h.redirect(c, ws, session.FlashSuccess, "All records have been cleared.", h.cfg.AdminPath)
}

// Export writes the printable report of the current filtered view.
func (h *Handler) Export(c *gin.Context) {
	_, d, err := h.adminTools(c)
	if err != nil {
		c.String(statusFor(err), userMessage(err, "Export is unavailable."))
		return
	}
	view := d.View()

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if !h.exporter.Export(c.Request.Context(), view.Result, view.Filter, export.WriterPrinter{W: c.Writer}) {
		if !c.Writer.Written() {
			c.String(http.StatusInternalServerError, "Export failed. Please try again.")
		}
		return
	}
	h.logger.Debug("report sent", zap.String("filter", view.Filter.String()))
}
