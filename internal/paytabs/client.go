package paytabs

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 30 * time.Second

// Config holds the PayTabs merchant profile. It is injected into NewClient;
// nothing in this package reads the environment.
type Config struct {
	ProfileID string
	ServerKey string
	ClientKey string
	BaseURL   string
	Currency  string
	Country   string
	City      string
	State     string
	Zip       string
	Phone     string
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ProfileID == "" || cfg.ServerKey == "" {
		return nil, errors.New("paytabs: profile id and server key are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://secure-egypt.paytabs.com"
	}
	if cfg.Currency == "" {
		cfg.Currency = "EGP"
	}
	if cfg.Country == "" {
		cfg.Country = "EGY"
	}
	if cfg.City == "" {
		cfg.City = "Cairo"
	}
	if cfg.State == "" {
		cfg.State = "Cairo"
	}
	if cfg.Zip == "" {
		cfg.Zip = "11511"
	}
	if cfg.Phone == "" {
		cfg.Phone = "01000000000"
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Currency returns the merchant currency all payment links are created in.
func (c *Client) Currency() string {
	return c.cfg.Currency
}

// GatewayError is returned for any failure talking to PayTabs: transport
// errors, non-2xx responses and responses missing required fields. Callers
// must treat it as "outcome unknown", never as a declined payment.
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("paytabs: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("paytabs: %s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

type CreatePaymentLinkInput struct {
	CourseID      string
	CourseTitle   string
	Amount        float64
	CustomerEmail string
	CustomerName  string
	CallbackURL   string
	ReturnURL     string
}

// PaymentLink is the usable part of a successful payment/request response.
type PaymentLink struct {
	TranRef     string
	RedirectURL string
}

type customerDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Street1 string `json:"street1"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
}

type paymentRequest struct {
	ProfileID       string          `json:"profile_id"`
	TranType        string          `json:"tran_type"`
	TranClass       string          `json:"tran_class"`
	CartID          string          `json:"cart_id"`
	CartDescription string          `json:"cart_description"`
	CartCurrency    string          `json:"cart_currency"`
	CartAmount      float64         `json:"cart_amount"`
	Callback        string          `json:"callback"`
	Return          string          `json:"return"`
	HideShipping    bool            `json:"hide_shipping"`
	CustomerDetails customerDetails `json:"customer_details"`
}

type paymentResponse struct {
	TranRef     string `json:"tran_ref"`
	RedirectURL string `json:"redirect_url"`
	Message     string `json:"message"`
}

// PaymentResult carries the gateway's decision fields for a transaction.
// response_status: A approved, H hold, D declined, E error, X expired/cancelled.
type PaymentResult struct {
	ResponseStatus  string `json:"response_status"`
	ResponseCode    string `json:"response_code"`
	ResponseMessage string `json:"response_message"`
}

// TransactionStatus is the provider-shaped payload from payment/query.
type TransactionStatus struct {
	TranRef       string        `json:"tran_ref"`
	CartID        string        `json:"cart_id"`
	CartAmount    string        `json:"cart_amount"`
	CartCurrency  string        `json:"cart_currency"`
	PaymentResult PaymentResult `json:"payment_result"`
}

// CreatePaymentLink requests a hosted payment page for a single course sale.
// The cart id embeds the course id plus a timestamp so retried purchases never
// reuse a cart id on the provider side.
func (c *Client) CreatePaymentLink(ctx context.Context, in CreatePaymentLinkInput) (*PaymentLink, error) {
	body := paymentRequest{
		ProfileID:       c.cfg.ProfileID,
		TranType:        "sale",
		TranClass:       "ecom",
		CartID:          fmt.Sprintf("course_%s_%d", in.CourseID, time.Now().UnixMilli()),
		CartDescription: fmt.Sprintf("Purchase of course: %s", in.CourseTitle),
		CartCurrency:    c.cfg.Currency,
		CartAmount:      in.Amount,
		Callback:        in.CallbackURL,
		Return:          in.ReturnURL,
		HideShipping:    true,
		CustomerDetails: customerDetails{
			Name:    in.CustomerName,
			Email:   in.CustomerEmail,
			Street1: "Customer Address",
			City:    c.cfg.City,
			State:   c.cfg.State,
			Country: c.cfg.Country,
			Zip:     c.cfg.Zip,
			Phone:   c.cfg.Phone,
		},
	}

	var out paymentResponse
	if err := c.post(ctx, "create payment link", "/payment/request", body, &out); err != nil {
		return nil, err
	}

	if out.TranRef == "" || out.RedirectURL == "" {
		msg := out.Message
		if msg == "" {
			msg = "response missing tran_ref or redirect_url"
		}
		return nil, &GatewayError{Op: "create payment link", Message: msg}
	}

	return &PaymentLink{TranRef: out.TranRef, RedirectURL: out.RedirectURL}, nil
}

// VerifyPayment queries the current state of a transaction. A returned error
// means the state is unknown, not that the payment failed.
func (c *Client) VerifyPayment(ctx context.Context, tranRef string) (*TransactionStatus, error) {
	body := map[string]string{
		"profile_id": c.cfg.ProfileID,
		"tran_ref":   tranRef,
	}

	var out TransactionStatus
	if err := c.post(ctx, "verify payment", "/payment/query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, op, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", c.cfg.ServerKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the provider's own diagnostic when it sent one.
		var diag struct {
			Message string `json:"message"`
		}
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if json.Unmarshal(raw, &diag) == nil && diag.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, diag.Message)
		}
		return &GatewayError{Op: op, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, Err: err}
	}
	return nil
}

// ValidateCallbackSignature checks the HMAC-SHA256 hex signature PayTabs
// attaches to webhook deliveries. An empty signature is accepted since the
// callback is corroborated against payment/query anyway.
func (c *Client) ValidateCallbackSignature(body []byte, signature string) bool {
	if signature == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.ServerKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
