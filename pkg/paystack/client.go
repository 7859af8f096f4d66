package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/makolahq/makola-backend/pkg/config"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
)

const (
	initializePath   = "/transaction/initialize"
	signatureHeader  = "X-Paystack-Signature"
	defaultUserAgent = "makola-backend"
)

var (
	errSecretKeyRequired     = errors.New("paystack secret key is required")
	errWebhookSecretRequired = errors.New("paystack webhook secret is required")
	errLoggerRequired        = errors.New("paystack logger is required")
)

// Client wraps the Paystack REST API with centralized auth, logging, and
// error mapping.
type Client struct {
	http          *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	callbackURL   string
	logger        *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		http:          &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		callbackURL:   strings.TrimSpace(cfg.CallbackURL),
		logger:        logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// InitializeRequest carries the fields needed to start a charge.
type InitializeRequest struct {
	Email     string            `json:"email"`
	Amount    int               `json:"amount"`
	Currency  string            `json:"currency,omitempty"`
	Reference string            `json:"reference,omitempty"`
	Channels  []string          `json:"channels,omitempty"`
	Callback  string            `json:"callback_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Authorization is the redirect handle returned by a successful
// initialization.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction starts a charge and returns the buyer redirect
// handle. Amount is in minor units.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*Authorization, error) {
	if req.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if req.Callback == "" && c.callbackURL != "" {
		req.Callback = c.callbackURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode initialize request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initializePath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build initialize request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call paystack initialize")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("paystack returned status %d", resp.StatusCode)
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	var auth Authorization
	if err := json.Unmarshal(envelope.Data, &auth); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode authorization data")
	}
	if auth.AuthorizationURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack response missing authorization url")
	}
	return &auth, nil
}

// VerifySignature checks the webhook HMAC-SHA512 signature against the raw
// payload.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	return VerifySignature(c.webhookSecret, payload, signature)
}

// SignatureHeader returns the name of the gateway's signature header.
func (c *Client) SignatureHeader() string {
	return signatureHeader
}

// VerifySignature checks an HMAC-SHA512 hex signature over payload.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Sign computes the hex HMAC-SHA512 signature for payload. Exposed for
// webhook tests.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
