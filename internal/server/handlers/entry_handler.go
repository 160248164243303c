package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/stylishcuts/internal/domain/models"
	"github.com/mamadbah2/stylishcuts/internal/server/session"
	"github.com/mamadbah2/stylishcuts/internal/service/dashboard"
	"github.com/mamadbah2/stylishcuts/internal/service/entry"
)

// postedCustomers reads the parallel name/service/price fields of a posted form.
// A malformed price reads as zero, so the row is dropped on submit.
func postedCustomers(c *gin.Context) []models.Customer {
	names := c.PostFormArray("name")
	services := c.PostFormArray("service")
	prices := c.PostFormArray("price")

	items := make([]models.Customer, len(names))
	for i, name := range names {
		items[i].Name = name
		if i < len(services) {
			items[i].Service = services[i]
		}
		if i < len(prices) {
			if price, err := models.ParseAmount(prices[i]); err == nil {
				items[i].Price = price
			}
		}
	}
	return items
}

func bindSalesForm(c *gin.Context, form *entry.SalesForm) {
	if date, ok := c.GetPostForm("date"); ok {
		form.SetDate(date)
	}
	if _, ok := c.GetPostFormArray("name"); ok {
		form.SetItems(postedCustomers(c))
	}
}

// SalesRows adds or removes a customer row, keeping what was typed so far.
func (h *Handler) SalesRows(c *gin.Context) {
	ws := workspace(c)
	bindSalesForm(c, ws.Sales)

	if raw, ok := c.GetPostForm("remove"); ok {
		i, err := strconv.Atoi(raw)
		if err != nil {
			i = -1
		}
		if err := ws.Sales.RemoveItem(i); err != nil {
			h.fail(c, err, "Could not remove that row.", withTab("sales"))
			return
		}
	} else {
		ws.Sales.AddItem()
	}
	c.Redirect(http.StatusSeeOther, "/?tab=sales")
}

// SubmitSales stores the sales form as a new record.
func (h *Handler) SubmitSales(c *gin.Context) {
	ws := workspace(c)
	bindSalesForm(c, ws.Sales)

	rec, err := ws.Sales.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to save sales record. Please try again.", withTab("sales"))
		return
	}
	h.settle(c, ws, func(d *dashboard.Dashboard) bool {
		_, ok := d.FindSales(rec.ID)
		return ok
	})
	h.redirect(c, ws, session.FlashSuccess, "Sales record added successfully!", "/?tab=sales")
}

// SubmitExpense stores the expense form as a new record.
func (h *Handler) SubmitExpense(c *gin.Context) {
	ws := workspace(c)
	raw := c.PostForm("amount")
	amount, err := models.ParseAmount(raw)
	if err != nil {
		amount = 0
	}
	ws.Expenses.Set(c.PostForm("date"), amount, c.PostForm("notes"))

	rec, err := ws.Expenses.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to save expense record. Please try again.", withTab("expenses"), withExpenseAmount(raw))
		return
	}
	h.settle(c, ws, func(d *dashboard.Dashboard) bool {
		_, ok := d.FindExpense(rec.ID)
		return ok
	})
	h.redirect(c, ws, session.FlashSuccess, "Expense record added successfully!", "/?tab=expenses")
}
