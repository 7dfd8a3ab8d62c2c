package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"kidot-ledger/internal/usecase/loan"
)

type LoanHandler struct {
	uc  *loan.Usecase
	log *slog.Logger
}

func NewLoanHandler(uc *loan.Usecase, log *slog.Logger) *LoanHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LoanHandler{uc: uc, log: log}
}

type addLoanReq struct {
	LoanID     *uint64 `json:"loan_id"     validate:"required"`
	LoanAmount *uint64 `json:"loan_amount" validate:"required"`
}

type lendReq struct {
	Amount *uint64 `json:"amount" validate:"required"`
}

type endowReq struct {
	Free *uint64 `json:"free" validate:"required"`
}

type accountParam struct {
	Account string `param:"account" validate:"account"`
}

func accountFrom(c echo.Context) (string, bool, error) {
	var p accountParam
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &p); err != nil {
		return "", false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid account"})
	}
	if err := c.Validate(&p); err != nil {
		return "", false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return p.Account, true, nil
}

func (h *LoanHandler) AddLoan(c echo.Context) error {
	caller, ok, err := signedCaller(c)
	if !ok {
		return err
	}
	var req addLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.AddLoan(c.Request().Context(), caller, *req.LoanID, *req.LoanAmount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) ResetAll(c echo.Context) error {
	caller, ok, err := signedCaller(c)
	if !ok {
		return err
	}
	if err := h.uc.ResetAll(c.Request().Context(), caller); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

func (h *LoanHandler) Lend(c echo.Context) error {
	caller, ok, err := signedCaller(c)
	if !ok {
		return err
	}
	loanID, ok, err := loanIDParam(c)
	if !ok {
		return err
	}
	var req lendReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Lend(c.Request().Context(), caller, loanID, *req.Amount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Payback(c echo.Context) error {
	caller, ok, err := signedCaller(c)
	if !ok {
		return err
	}
	rep, err := h.uc.Payback(c.Request().Context(), caller)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// GetLoan answers 404 for unknown loans; the zero-record read stays on the usecase.
func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, ok, err := loanIDParam(c)
	if !ok {
		return err
	}
	dto, err := h.uc.LookupLoan(c.Request().Context(), loanID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ListLoans returns full records, or only ids in insertion order with ?ids_only=true.
func (h *LoanHandler) ListLoans(c echo.Context) error {
	ctx := c.Request().Context()
	if idsOnly, _ := strconv.ParseBool(c.QueryParam("ids_only")); idsOnly {
		ids, err := h.uc.ListLoanIDs(ctx)
		if err != nil {
			return writeError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"loan_ids": ids})
	}
	loans, err := h.uc.ListLoans(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loans": loans})
}

func (h *LoanHandler) GetLenders(c echo.Context) error {
	loanID, ok, err := loanIDParam(c)
	if !ok {
		return err
	}
	lenders, err := h.uc.GetLenders(c.Request().Context(), loanID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan_id": loanID, "lenders": lenders})
}

func (h *LoanHandler) Ledger(c echo.Context) error {
	dto, err := h.uc.Ledger(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Endow(c echo.Context) error {
	caller, ok, err := signedCaller(c)
	if !ok {
		return err
	}
	account, ok, err := accountFrom(c)
	if !ok {
		return err
	}
	var req endowReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Endow(c.Request().Context(), caller, account, *req.Free)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Account(c echo.Context) error {
	account, ok, err := accountFrom(c)
	if !ok {
		return err
	}
	dto, err := h.uc.Account(c.Request().Context(), account)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
