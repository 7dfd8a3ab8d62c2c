package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"kidot-ledger/internal/adapter/middleware"
	"kidot-ledger/internal/domain/access"
	"kidot-ledger/internal/domain/currency"
	domainLoan "kidot-ledger/internal/domain/loan"
	domainPrice "kidot-ledger/internal/domain/price"
	"kidot-ledger/internal/usecase/pricefeed"
	"kidot-ledger/pkg/amount"
)

// statusOf maps domain errors to HTTP codes. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domainLoan.ErrNotFound), errors.Is(err, domainPrice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainLoan.ErrAlreadyExists), errors.Is(err, domainLoan.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, domainLoan.ErrInsufficientBalance),
		errors.Is(err, currency.ErrInsufficientBalance),
		errors.Is(err, amount.ErrOverflow),
		errors.Is(err, amount.ErrUnderflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pricefeed.ErrInvalidInput),
		errors.Is(err, domainPrice.ErrInvalidResult),
		errors.Is(err, domainPrice.ErrOutOfRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, log *slog.Logger, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		log.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(code, ErrorResponse{Error: "internal error"})
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}

// bindValid binds and validates req, writing the 400/422 response itself.
// ok=false means the response has been sent.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

// signedCaller returns the authenticated account or writes a 401.
func signedCaller(c echo.Context) (string, bool, error) {
	caller := middleware.CallerFrom(c)
	if caller == "" {
		return "", false, c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	}
	return caller, true, nil
}

func loanIDParam(c echo.Context) (uint64, bool, error) {
	id, err := strconv.ParseUint(c.Param("loan_id"), 10, 64)
	if err != nil {
		return 0, false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "loan_id must be an unsigned integer"})
	}
	return id, true, nil
}
