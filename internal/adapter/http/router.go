package http

import (
	"github.com/labstack/echo/v4"
)

// Register mounts the public, authenticated and admin routes. Callers install
// authentication before Register so handlers can read the caller.
func Register(e *echo.Echo, h *Handler, loans *LoanHandler, prices *PriceHandler) {
	if e.Validator == nil {
		e.Validator = NewValidator()
	}

	e.GET("/health", h.Health)

	e.GET("/loans", loans.ListLoans)
	e.GET("/loans/:loan_id", loans.GetLoan)
	e.GET("/loans/:loan_id/lenders", loans.GetLenders)
	e.GET("/ledger", loans.Ledger)
	e.GET("/accounts/:account", loans.Account)

	e.POST("/loans/:loan_id/lend", loans.Lend)
	e.POST("/payback", loans.Payback)

	admin := e.Group("/admin")
	admin.POST("/reset", loans.ResetAll)
	admin.POST("/loans", loans.AddLoan)
	admin.POST("/accounts/:account/endow", loans.Endow)

	if prices != nil {
		e.GET("/price", prices.Latest)
		e.GET("/price/history", prices.History)
		admin.POST("/price", prices.Submit)
	}
}
