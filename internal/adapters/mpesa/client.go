package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"bookstay/internal/adapters/observability"
	"bookstay/internal/domain"
)

// Client talks to the Daraja sandbox/production API. Every operation
// re-acquires a bearer token; the provider invalidates them quickly and the
// call volume here does not justify caching one.
type Client struct {
	base        string
	hc          *http.Client
	key         string
	secret      string
	shortcode   string
	passkey     string
	callbackURL string
	rl          *rate.Limiter

	now func() time.Time // injectable for password tests
}

type Config struct {
	Base        string
	Key         string
	Secret      string
	Shortcode   string
	Passkey     string
	CallbackURL string
	RPS         int
}

func New(cfg Config) (*Client, error) {
	if cfg.Key == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("consumer key and secret are required")
	}
	if cfg.Shortcode == "" || cfg.Passkey == "" {
		return nil, fmt.Errorf("shortcode and passkey are required")
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	return &Client{
		base:        strings.TrimRight(cfg.Base, "/"),
		hc:          &http.Client{Timeout: 20 * time.Second},
		key:         cfg.Key,
		secret:      cfg.Secret,
		shortcode:   cfg.Shortcode,
		passkey:     cfg.Passkey,
		callbackURL: cfg.CallbackURL,
		rl:          rate.NewLimiter(rate.Limit(cfg.RPS), cfg.RPS),
		now:         time.Now,
	}, nil
}

var (
	ErrUnauthorized = errors.New("mpesa: unauthorized")
	ErrGateway      = errors.New("mpesa: gateway error")
)

// timestampFormat is the provider's yyyyMMddHHmmss UTC stamp.
const timestampFormat = "20060102150405"

// password builds the timestamped credential the push and query endpoints
// both require: base64(shortcode + passkey + timestamp). The query endpoint
// wants a freshly stamped password even for an old transaction; that is the
// provider's documented convention.
func (c *Client) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.shortcode + c.passkey + ts))
}

// AccessToken obtains a short-lived bearer token via client credentials.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}
	url := c.base + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.key + ":" + c.secret))
	req.Header.Set("Authorization", "Basic "+basic)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("mpesa", "oauth", 0, time.Since(start))
		return "", err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("mpesa", "oauth", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrGateway, resp.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrGateway)
	}
	return body.AccessToken, nil
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPush triggers a payment prompt on the user's phone. Calling it twice
// triggers two prompts; idempotency is the caller's concern.
func (c *Client) STKPush(ctx context.Context, phone string, amount int64, accountRef string) (domain.STKPushResult, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return domain.STKPushResult{}, err
	}
	ts := c.now().UTC().Format(timestampFormat)
	body := stkPushRequest{
		BusinessShortCode: c.shortcode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Hotel Booking Payment",
	}

	var out struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
	}
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", "stkpush", token, body, &out); err != nil {
		return domain.STKPushResult{}, err
	}
	if out.CheckoutRequestID == "" {
		return domain.STKPushResult{}, fmt.Errorf("%w: push accepted without CheckoutRequestID (%s)", ErrGateway, out.ResponseDescription)
	}
	return domain.STKPushResult{
		MerchantRequestID: out.MerchantRequestID,
		CheckoutRequestID: out.CheckoutRequestID,
		ResponseCode:      out.ResponseCode,
		CustomerMessage:   out.CustomerMessage,
	}, nil
}

type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// QueryStatus asks the gateway for the outcome of a previously initiated
// push. ResultCode "0" means paid; any other value (including the provider's
// pending codes) is not success.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (domain.StatusResult, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return domain.StatusResult{}, err
	}
	ts := c.now().UTC().Format(timestampFormat)
	body := stkQueryRequest{
		BusinessShortCode: c.shortcode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	var out struct {
		ResultCode   string `json:"ResultCode"`
		ResultDesc   string `json:"ResultDesc"`
		ResponseCode string `json:"ResponseCode"`
	}
	if err := c.post(ctx, "/mpesa/stkpushquery/v1/query", "stkquery", token, body, &out); err != nil {
		return domain.StatusResult{}, err
	}
	return domain.StatusResult{ResultCode: out.ResultCode, ResultDesc: out.ResultDesc}, nil
}

func (c *Client) post(ctx context.Context, path, endpoint, token string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("mpesa", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("mpesa", endpoint, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %d: %s", ErrGateway, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
