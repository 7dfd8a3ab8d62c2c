package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"kidot-ledger/internal/usecase/pricefeed"
)

const maxHistory = 500

type PriceHandler struct {
	uc  *pricefeed.Usecase
	log *slog.Logger
}

func NewPriceHandler(uc *pricefeed.Usecase, log *slog.Logger) *PriceHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PriceHandler{uc: uc, log: log}
}

// submitPriceReq carries either a plain price or the oracle callback result.
type submitPriceReq struct {
	Price  *int64 `json:"price"`
	Result string `json:"result" validate:"omitempty,max=66,hexresult"`
}

func (h *PriceHandler) Submit(c echo.Context) error {
	caller, ok, err := signedCaller(c)
	if !ok {
		return err
	}
	var req submitPriceReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Submit(c.Request().Context(), caller, pricefeed.SubmitInput{Price: req.Price, Result: req.Result})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *PriceHandler) Latest(c echo.Context) error {
	dto, err := h.uc.Latest(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *PriceHandler) History(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistory {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and " + strconv.Itoa(maxHistory)})
		}
		limit = n
	}
	qs, err := h.uc.History(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"pair": h.uc.Pair(), "quotes": qs})
}
