package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookstay/internal/adapters/observability"
	"bookstay/internal/domain"
)

// Client covers the two payment-intent calls the booking flow needs. The
// Stripe API is form-encoded in, JSON out.
type Client struct {
	base string
	hc   *http.Client
	key  string
}

func New(base, key string) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
	}, nil
}

var (
	ErrNotFound     = errors.New("stripe: not found")
	ErrUnauthorized = errors.New("stripe: unauthorized")
)

// IntentSucceeded is the provider's terminal success status.
const IntentSucceeded = "succeeded"

func (c *Client) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	return c.do(ctx, http.MethodPost, "/v1/payment_intents", "create_intent", strings.NewReader(form.Encode()))
}

func (c *Client) GetIntent(ctx context.Context, id string) (domain.PaymentIntent, error) {
	if id == "" {
		return domain.PaymentIntent{}, fmt.Errorf("intent id is required")
	}
	return c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), "get_intent", nil)
}

type intentPayload struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body io.Reader) (domain.PaymentIntent, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return domain.PaymentIntent{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("stripe", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return domain.PaymentIntent{}, ctx.Err()
		}
		return domain.PaymentIntent{}, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("stripe", endpoint, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		var p intentPayload
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return domain.PaymentIntent{}, err
		}
		return domain.PaymentIntent{
			ID:           p.ID,
			ClientSecret: p.ClientSecret,
			Status:       p.Status,
			Amount:       p.Amount,
			Currency:     p.Currency,
			Metadata:     p.Metadata,
		}, nil
	case http.StatusNotFound:
		return domain.PaymentIntent{}, ErrNotFound
	case http.StatusUnauthorized:
		return domain.PaymentIntent{}, ErrUnauthorized
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.PaymentIntent{}, fmt.Errorf("stripe: %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
	}
}
