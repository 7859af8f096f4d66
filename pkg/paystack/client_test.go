package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/makolahq/makola-backend/pkg/config"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	client, err := NewClient(context.Background(), config.PaystackConfig{
		SecretKey:     "sk_test_abc",
		WebhookSecret: "whsec_abc",
		BaseURL:       baseURL,
		Timeout:       2 * time.Second,
	}, logg)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Parallel()

	logg := logger.New(logger.Options{ServiceName: "test"})

	_, err := NewClient(context.Background(), config.PaystackConfig{WebhookSecret: "x"}, logg)
	require.ErrorIs(t, err, errSecretKeyRequired)

	_, err = NewClient(context.Background(), config.PaystackConfig{SecretKey: "x"}, logg)
	require.ErrorIs(t, err, errWebhookSecretRequired)

	_, err = NewClient(context.Background(), config.PaystackConfig{SecretKey: "x", WebhookSecret: "y"}, nil)
	require.ErrorIs(t, err, errLoggerRequired)
}

func TestInitializeTransaction(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, initializePath, r.URL.Path)
		require.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		var req InitializeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "ama@example.com", req.Email)
		require.Equal(t, 270000, req.Amount)

		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         req.Reference,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	auth, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:     "ama@example.com",
		Amount:    270000,
		Reference: "MKL-20260823-ABC123",
	})
	require.NoError(t, err)
	require.Equal(t, "https://checkout.paystack.com/abc123", auth.AuthorizationURL)
	require.Equal(t, "MKL-20260823-ABC123", auth.Reference)
}

func TestInitializeTransactionGatewayError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid amount",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:  "ama@example.com",
		Amount: 100,
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestInitializeTransactionValidation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "http://localhost:0")

	_, err := client.InitializeTransaction(context.Background(), InitializeRequest{Amount: 100})
	require.Error(t, err)

	_, err = client.InitializeTransaction(context.Background(), InitializeRequest{Email: "a@b.com"})
	require.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"event":"charge.success"}`)
	sig := Sign("whsec_abc", payload)

	client := newTestClient(t, "http://localhost:0")
	require.True(t, client.VerifySignature(payload, sig))
	require.False(t, client.VerifySignature(payload, "deadbeef"))
	require.False(t, client.VerifySignature([]byte(`tampered`), sig))
	require.False(t, client.VerifySignature(payload, ""))
}
