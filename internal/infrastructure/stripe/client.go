package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/config"
)

// Client issues authenticated calls against the Stripe API. It carries no
// business logic: bearer auth, form-encoded bodies, JSON responses, and a
// circuit breaker so a degraded gateway fails fast instead of hanging requests.
type Client struct {
	http       *resty.Client
	breaker    *gobreaker.CircuitBreaker
	apiVersion string
}

func NewClient(cfg config.StripeConfig, logger *slog.Logger) application.GatewayClient {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.ConnTimeout).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"circuit", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Client-level rejections (declined cards, bad params) are healthy
		// gateway behavior and must not open the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if gwErr, ok := IsGatewayError(err); ok {
				return !gwErr.IsRetryable()
			}
			return false
		},
	})

	return &Client{
		http:       httpClient,
		breaker:    breaker,
		apiVersion: cfg.APIVersion,
	}
}

type customerResponse struct {
	ID string `json:"id"`
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type ephemeralKeyResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

func (c *Client) CreateCustomer(ctx context.Context) (*application.Customer, error) {
	resp, err := postForm[customerResponse](c, ctx, "/v1/customers", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, &GatewayError{Code: "invalid_response", Message: "customer response missing id", StatusCode: 502}
	}
	return &application.Customer{ID: resp.ID}, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency, orderID string) (*application.PaymentIntent, error) {
	form := map[string]string{
		"amount":   strconv.FormatInt(amountCents, 10),
		"currency": currency,
		// The metadata tag is how webhook events resolve back to an order.
		"metadata[order_id]":                 orderID,
		"automatic_payment_methods[enabled]": "true",
	}

	resp, err := postForm[paymentIntentResponse](c, ctx, "/v1/payment_intents", form, nil)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.ClientSecret == "" {
		return nil, &GatewayError{Code: "invalid_response", Message: "payment intent response incomplete", StatusCode: 502}
	}
	return &application.PaymentIntent{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
		Amount:       resp.Amount,
		Currency:     resp.Currency,
	}, nil
}

func (c *Client) CreateEphemeralKey(ctx context.Context, customerID string) (*application.EphemeralKey, error) {
	form := map[string]string{"customer": customerID}
	// Ephemeral keys are minted against a pinned API version so the client SDK
	// and the key agree on the wire format.
	headers := map[string]string{"Stripe-Version": c.apiVersion}

	resp, err := postForm[ephemeralKeyResponse](c, ctx, "/v1/ephemeral_keys", form, headers)
	if err != nil {
		return nil, err
	}
	if resp.Secret == "" {
		return nil, &GatewayError{Code: "invalid_response", Message: "ephemeral key response missing secret", StatusCode: 502}
	}
	return &application.EphemeralKey{ID: resp.ID, Secret: resp.Secret}, nil
}

func postForm[Resp any](c *Client, ctx context.Context, path string, form, headers map[string]string) (*Resp, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req := c.http.R().SetContext(ctx)
		if form != nil {
			req.SetFormData(form)
		}
		if headers != nil {
			req.SetHeaders(headers)
		}

		resp, err := req.Post(path)
		if err != nil {
			return nil, fmt.Errorf("stripe request failed: %w", err)
		}

		if resp.IsError() {
			var apiErr APIErrorResponse
			if jsonErr := json.Unmarshal(resp.Body(), &apiErr); jsonErr != nil || apiErr.Error.Message == "" {
				return nil, &GatewayError{
					Code:       "api_error",
					Message:    resp.Status(),
					StatusCode: resp.StatusCode(),
				}
			}
			return nil, &GatewayError{
				Code:       apiErr.Error.Code,
				Message:    apiErr.Error.Message,
				StatusCode: resp.StatusCode(),
			}
		}

		var out Resp
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return nil, fmt.Errorf("error decoding json response: %w", err)
		}
		return &out, nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, &GatewayError{
				Code:       "circuit_open",
				Message:    "payment gateway temporarily unavailable",
				StatusCode: 503,
			}
		}
		return nil, err
	}

	return result.(*Resp), nil
}
