package ccavenue

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrMissingCredentials is a configuration error: payment must not be
	// initiated at all without a full credential set.
	ErrMissingCredentials = errors.New("ccavenue: merchant_id, access_code and working key are required")

	// ErrMissingTrackingID means a void/refund/status was attempted before the
	// gateway assigned a tracking id. That is a caller bug, not a gateway
	// failure, so it is returned loudly instead of folded into an outcome.
	ErrMissingTrackingID = errors.New("ccavenue: transaction has no tracking id")
)

// Config carries the merchant credentials and endpoint selection for a Client.
type Config struct {
	MerchantID string
	AccessCode string
	WorkingKey string
	TestMode   bool

	// Optional endpoint overrides; the mode table is used when empty.
	TransactionURL string
	APIURL         string
	SignupURL      string

	// Timeout bounds every API round trip. Defaults to 10s.
	Timeout time.Duration

	// HTTPClient overrides the internally built client (tests).
	HTTPClient *http.Client
}

// TransactionRef identifies one gateway-side payment attempt for the
// post-authorization operations. Amount must be the gateway-confirmed amount
// when available since that is what was actually captured.
type TransactionRef struct {
	TrackingID         string
	Amount             string
	GatewayOrderNumber string
}

// Client talks the encrypted request/response protocol with the gateway.
// Credentials are immutable for the lifetime of the client; the credential
// probe builds a transient client instead of swapping state in place.
type Client struct {
	merchantID     string
	accessCode     string
	testMode       bool
	transactionURL string
	apiURL         string
	signupURL      string

	crypter *Crypter
	builder *RequestBuilder
	http    *http.Client
}

// NewClient validates the credential set and resolves endpoints.
func NewClient(cfg Config) (*Client, error) {
	if cfg.MerchantID == "" || cfg.AccessCode == "" || cfg.WorkingKey == "" {
		return nil, ErrMissingCredentials
	}
	mode := ModeProduction
	if cfg.TestMode {
		mode = ModeTest
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := &http.Transport{}
		if cfg.TestMode {
			// the sandbox endpoint is a bare IP with a mismatched certificate
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}
	crypter := NewCrypter(cfg.WorkingKey)
	return &Client{
		merchantID:     cfg.MerchantID,
		accessCode:     cfg.AccessCode,
		testMode:       cfg.TestMode,
		transactionURL: urlFor(mode, endpointTransaction, cfg.TransactionURL),
		apiURL:         urlFor(mode, endpointAPI, cfg.APIURL),
		signupURL:      urlFor(mode, endpointSignup, cfg.SignupURL),
		crypter:        crypter,
		builder:        NewRequestBuilder(cfg.AccessCode, crypter),
		http:           httpClient,
	}, nil
}

func (c *Client) MerchantID() string     { return c.merchantID }
func (c *Client) AccessCode() string     { return c.accessCode }
func (c *Client) TransactionURL() string { return c.transactionURL }
func (c *Client) SignupURL() string      { return c.signupURL }

// BuildCheckoutRedirect merges the order/customer fields with the merchant id
// and the protocol's fixed fields and encrypts the whole query string. No
// network call is made; the browser posts the result to the transaction URL.
func (c *Client) BuildCheckoutRedirect(orderFields url.Values) (string, error) {
	fields := url.Values{}
	for k, vs := range orderFields {
		for _, v := range vs {
			fields.Add(k, v)
		}
	}
	fields.Set("merchant_id", c.merchantID)
	fields.Set("cancel_url", "")
	fields.Set("language", "EN")
	// reserved by the protocol, always sent empty
	for _, p := range []string{"merchant_param1", "merchant_param2", "merchant_param3", "merchant_param4", "merchant_param5"} {
		fields.Set(p, "")
	}
	return c.crypter.Encrypt([]byte(fields.Encode()))
}

// ParseCallback decrypts and url-decodes the browser redirect payload
// (the encResp form field). Pure, no network call.
func (c *Client) ParseCallback(encryptedResponse string) (url.Values, error) {
	plain, err := c.crypter.Decrypt(strings.TrimSpace(encryptedResponse))
	if err != nil {
		return nil, err
	}
	vals, err := url.ParseQuery(string(plain))
	if err != nil {
		return nil, fmt.Errorf("ccavenue: malformed callback payload: %w", err)
	}
	return vals, nil
}

// Cancel asks the gateway to cancel a captured/pending payment.
func (c *Client) Cancel(ctx context.Context, ref TransactionRef) (CancelResult, error) {
	if ref.TrackingID == "" {
		return CancelResult{}, ErrMissingTrackingID
	}
	form, err := c.builder.CancelOrder(ref.TrackingID, ref.Amount)
	if err != nil {
		return CancelResult{}, err
	}
	body, transportErr := c.post(ctx, form)
	if transportErr != nil {
		return CancelResult{Result: TransportFailure(transportErr.Error())}, nil
	}
	res := ParseCancelResponse(body, c.crypter)
	logAPIOutcome("cancel", res.Successful(), res.Reason)
	return res, nil
}

// Refund asks the gateway to refund a settled payment.
func (c *Client) Refund(ctx context.Context, ref TransactionRef) (RefundResult, error) {
	if ref.TrackingID == "" {
		return RefundResult{}, ErrMissingTrackingID
	}
	form, err := c.builder.RefundOrder(ref.TrackingID, ref.Amount, ref.GatewayOrderNumber)
	if err != nil {
		return RefundResult{}, err
	}
	body, transportErr := c.post(ctx, form)
	if transportErr != nil {
		return RefundResult{Result: TransportFailure(transportErr.Error())}, nil
	}
	res := ParseRefundResponse(body, c.crypter)
	logAPIOutcome("refund", res.Successful(), res.Reason)
	return res, nil
}

// Void reverses a payment: cancel first, and only when the gateway refuses
// the cancel, escalate to a refund. The gateway holds its own authoritative
// state that we cannot query before acting, so cancel is attempted
// optimistically and refund is the compensating fallback (e.g. funds already
// settled).
func (c *Client) Void(ctx context.Context, ref TransactionRef) (VoidResult, error) {
	cancel, err := c.Cancel(ctx, ref)
	if err != nil {
		return VoidResult{}, err
	}
	out := VoidResult{Cancel: cancel}
	if !cancel.Successful() {
		refund, err := c.Refund(ctx, ref)
		if err != nil {
			return VoidResult{}, err
		}
		out.Refund = &refund
	}
	logAPIOutcome("void", out.Successful(), out.Reason())
	return out, nil
}

// Status queries the gateway-side order status; used for reconciliation and
// resolving transactions stuck in initiated, not in the checkout path.
func (c *Client) Status(ctx context.Context, trackingID, orderNo string) (StatusResult, error) {
	if trackingID == "" {
		return StatusResult{}, ErrMissingTrackingID
	}
	form, err := c.builder.OrderStatus(trackingID, orderNo)
	if err != nil {
		return StatusResult{}, err
	}
	body, transportErr := c.post(ctx, form)
	if transportErr != nil {
		return StatusResult{Result: TransportFailure(transportErr.Error())}, nil
	}
	res := ParseStatusResponse(body, c.crypter)
	logAPIOutcome("status", res.Successful(), res.Reason)
	return res, nil
}

// ValidateCredentials probes the API with candidate credentials. The gateway
// has no validation endpoint, so a status query with an empty reference number
// is sent: getting the well-known "reference number is mandatory" error back
// proves the candidate key encrypts and decrypts correctly against the real
// endpoint. The probe runs on a transient client scoped to the candidate
// credentials; this client's state is never touched.
func (c *Client) ValidateCredentials(ctx context.Context, accessCode, workingKey string) (CredentialCheckResult, error) {
	probe, err := NewClient(Config{
		MerchantID:     c.merchantID,
		AccessCode:     accessCode,
		WorkingKey:     workingKey,
		TestMode:       c.testMode,
		TransactionURL: c.transactionURL,
		APIURL:         c.apiURL,
		SignupURL:      c.signupURL,
		HTTPClient:     c.http,
	})
	if err != nil {
		return CredentialCheckResult{}, err
	}
	form, err := probe.builder.OrderStatus("", "")
	if err != nil {
		return CredentialCheckResult{}, err
	}
	body, transportErr := probe.post(ctx, form)
	if transportErr != nil {
		return CredentialCheckResult{Result: TransportFailure(transportErr.Error())}, nil
	}
	res := ParseCredentialCheckResponse(body, probe.crypter)
	logAPIOutcome("credential check", res.Valid, res.Reason)
	return res, nil
}

// post sends one form-encoded POST to the API endpoint. Every transport-level
// fault, timeouts included, comes back as an error for the caller to fold
// into a failed outcome; nothing is retried here.
func (c *Client) post(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	// gzip/deflate is negotiated by the transport itself; setting
	// Accept-Encoding by hand would disable its transparent decompression

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

func logAPIOutcome(op string, ok bool, reason string) {
	if ok {
		log.Printf("[ccavenue] %s api request returned successfully", op)
		return
	}
	log.Printf("[ccavenue] %s api request returned with a failure %q", op, reason)
}
