package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/payment"
)

// PaymentHandler creates deposit payment intents.
type PaymentHandler struct {
	Payments *payment.Client
}

func NewPaymentHandler(p *payment.Client) *PaymentHandler { return &PaymentHandler{Payments: p} }

// CreateIntent handles POST /v1/payments/intent with body {"amount": n}
// in whole currency units.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	var body struct {
		Amount int64 `json:"amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	intent, err := h.Payments.CreatePaymentIntent(c.Request().Context(), body.Amount)
	switch {
	case errors.Is(err, payment.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrDisabled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	case err != nil:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"clientSecret": intent.ClientSecret})
}
