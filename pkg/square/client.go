// Package square wraps the Square checkout and orders APIs used to sell
// memorial plans.
package square

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"
	"go.uber.org/multierr"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/memorial-backend/pkg/errors"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

const orderStateCompleted = "COMPLETED"

var environments = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

type Client struct {
	sdk         *sqclient.Client
	environment string
	locationID  string
	currency    string
	redirectURL string
	logger      *logger.Logger
}

// NewClient validates the credentials up front and reports every problem at
// once.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if env == "" {
		env = "sandbox"
	}
	token := strings.TrimSpace(cfg.AccessToken)
	location := strings.TrimSpace(cfg.LocationID)

	var errs error
	if logg == nil {
		errs = multierr.Append(errs, fmt.Errorf("square: logger is required"))
	}
	if token == "" {
		errs = multierr.Append(errs, fmt.Errorf("square: access token is required"))
	}
	if location == "" {
		errs = multierr.Append(errs, fmt.Errorf("square: location id is required"))
	}
	baseURL, ok := environments[env]
	if !ok {
		errs = multierr.Append(errs, fmt.Errorf("square: unknown environment %q", env))
	}
	if errs != nil {
		return nil, errs
	}

	opts := []sqoption.RequestOption{sqoption.WithBaseURL(baseURL), sqoption.WithToken(token)}
	if cfg.Timeout > 0 {
		opts = append(opts, sqoption.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	c := &Client{
		sdk:         sqclient.NewClient(opts...),
		environment: env,
		locationID:  location,
		currency:    strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		redirectURL: strings.TrimSpace(cfg.RedirectURL),
		logger:      logg,
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"environment": env, "location_id": location}), "square client ready")
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// NewIdempotencyKey returns a fresh Square idempotency key under prefix.
func NewIdempotencyKey(prefix string) string {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "mem"
	}
	return prefix + "-" + uuid.NewString()
}

// CreateCheckout creates a hosted payment link for a single plan purchase.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error) {
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout amount must be positive")
	}
	if params.Currency == "" {
		params.Currency = c.currency
	}
	if params.RedirectURL == "" {
		params.RedirectURL = c.redirectURL
	}
	key := params.IdempotencyKey
	if strings.TrimSpace(key) == "" {
		key = NewIdempotencyKey("checkout")
	}

	var out *Checkout
	err := c.call(ctx, "create_payment_link", map[string]any{
		"amount":   params.AmountCents,
		"currency": params.Currency,
	}, func() error {
		resp, err := c.sdk.Checkout.PaymentLinks.Create(ctx, params.toSquareRequest(key, c.locationID))
		if err != nil {
			return err
		}
		if resp.PaymentLink == nil {
			return pkgerrors.New(pkgerrors.CodeUpstream, "square returned no payment link")
		}
		out = &Checkout{
			LinkID:  stringValue(resp.PaymentLink.ID),
			OrderID: stringValue(resp.PaymentLink.OrderID),
			URL:     stringValue(resp.PaymentLink.URL),
		}
		return nil
	})
	return out, err
}

// LookupOrder fetches the order behind a checkout and reports whether it was paid.
func (c *Client) LookupOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var out *OrderStatus
	err := c.call(ctx, "get_order", map[string]any{"order_id": orderID}, func() error {
		resp, err := c.sdk.Orders.Get(ctx, &sq.GetOrdersRequest{OrderID: orderID})
		if err != nil {
			return err
		}
		if out = orderStatusFrom(resp.Order); out == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "square order not found")
		}
		return nil
	})
	return out, err
}

// call runs one SDK request, logs its outcome with redacted fields and maps
// failures onto error codes.
func (c *Client) call(ctx context.Context, op string, fields map[string]any, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		err = classify(err, op)
	}
	if c.logger == nil {
		return err
	}

	logFields := map[string]any{
		"square_op":   op,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if err != nil {
		c.logger.Error(ctx, "square call failed", err)
		return err
	}
	c.logger.Info(ctx, "square call ok")
	return nil
}

var sensitiveKeys = []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return "[REDACTED]"
		}
	}
	return value
}
