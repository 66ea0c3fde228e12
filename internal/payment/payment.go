// Package payment creates deposit payment intents with Stripe.  Payment is
// a precondition of reserving a slot and takes no part in the reservation
// transaction.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// MaxAmount is the largest deposit in whole currency units.  It keeps
// amount*100 within the provider's eight-digit limit.
const MaxAmount = 999_999

var (
	// ErrInvalidAmount is returned for amounts outside 1..MaxAmount.
	ErrInvalidAmount = errors.New("amount must be between 1 and 999999")
	// ErrDisabled is returned when no Stripe key is configured.
	ErrDisabled = errors.New("payments are not configured")
)

// Intent is what the browser needs to confirm the payment.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

// Client creates payment intents for whole-unit amounts.
type Client struct {
	currency string
	log      *zap.Logger
	create   func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// NewClient returns a Client using secretKey.  An empty key yields a client
// whose calls fail with ErrDisabled.
func NewClient(secretKey, currency string, log *zap.Logger) *Client {
	if currency == "" {
		currency = string(stripe.CurrencyCAD)
	}
	c := &Client{currency: strings.ToLower(currency), log: log.Named("payment")}
	if secretKey != "" {
		pi := &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
		c.create = pi.New
	}
	return c
}

// CreatePaymentIntent creates an intent for amount whole currency units
// (charged as amount*100 minor units) with automatic payment methods.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64) (Intent, error) {
	if amount <= 0 || amount > MaxAmount {
		return Intent{}, ErrInvalidAmount
	}
	if c.create == nil {
		return Intent{}, ErrDisabled
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount * 100),
		Currency: stripe.String(c.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	pi, err := c.create(params)
	if err != nil {
		c.log.Error("create payment intent failed", zap.Int64("amount", amount), zap.Error(err))
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
