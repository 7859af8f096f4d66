package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	paystackwebhook "github.com/makolahq/makola-backend/internal/webhooks/paystack"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/paystack"
)

type noopWebhookService struct{}

func (noopWebhookService) HandleEvent(_ context.Context, _ *paystackwebhook.Event) error {
	return nil
}

type staticVerifier struct{}

func (staticVerifier) VerifySignature(payload []byte, signature string) bool {
	return paystack.VerifySignature("secret", payload, signature)
}

func (staticVerifier) SignatureHeader() string {
	return "X-Paystack-Signature"
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "makola-test", ExpirationMinutes: 15},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
	return NewRouter(RouterParams{
		Config:          cfg,
		Logger:          logg,
		WebhookService:  noopWebhookService{},
		WebhookVerifier: staticVerifier{},
	})
}

func TestRouterHealthLive(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Makola-Env") != "test" {
		t.Fatalf("missing env header")
	}
}

func TestRouterRequiresAuthOnAPIRoutes(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	for _, path := range []string{"/api/v1/cart", "/api/v1/orders"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, rec.Code)
		}
	}
}

func TestRouterWebhookIsPublicButSigned(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for unsigned call", rec.Code)
	}
}
