// Package paystack talks to the Paystack transaction API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inchambers/commerce/config"
	"github.com/inchambers/commerce/payment"
)

const provider = "paystack"

type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	currency   string
}

var _ payment.Gateway = (*Client)(nil)

func New(cfg config.Paystack, currency string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		secretKey:  cfg.SecretKey,
		currency:   currency,
	}
}

// response is the envelope Paystack wraps every payload in.
type response[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	CallbackURL string `json:"callback_url"`
	Reference   string `json:"reference,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

func (c *Client) InitiateTransaction(ctx context.Context, tx payment.Transaction) (payment.Initiated, error) {
	var meta string
	if len(tx.Metadata) > 0 {
		b, err := json.Marshal(tx.Metadata)
		if err != nil {
			return payment.Initiated{}, fmt.Errorf("encoding metadata: %w", err)
		}
		meta = string(b)
	}

	body := initializeRequest{
		Email:       tx.Email,
		Amount:      payment.MinorUnits(tx.Amount),
		Currency:    c.currency,
		CallbackURL: tx.CallbackURL,
		Reference:   tx.Reference,
		Metadata:    meta,
	}

	var res response[initializeData]
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &res); err != nil {
		return payment.Initiated{}, &payment.UpstreamError{Provider: provider, Op: "initialize", Message: res.Message, Err: err}
	}

	if !res.Status {
		return payment.Initiated{}, &payment.UpstreamError{Provider: provider, Op: "initialize", Message: res.Message}
	}

	return payment.Initiated{
		AuthorizationURL: res.Data.AuthorizationURL,
		AccessCode:       res.Data.AccessCode,
		Reference:        res.Data.Reference,
	}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (payment.Verification, error) {
	var res response[verifyData]
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return payment.Verification{}, &payment.UpstreamError{Provider: provider, Op: "verify", Message: res.Message, Err: err}
	}

	if !res.Status {
		return payment.Verification{}, &payment.UpstreamError{Provider: provider, Op: "verify", Message: res.Message}
	}

	return payment.Verification{
		TransactionID: fmt.Sprint(res.Data.ID),
		Status:        res.Data.Status,
	}, nil
}

// do sends one request and decodes the envelope into out. The envelope
// is decoded on error statuses too so the provider message survives.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	decodeErr := json.Unmarshal(raw, out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode body: %w", decodeErr)
	}
	return nil
}
