package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/makolahq/makola-backend/api/responses"
	paystackwebhook "github.com/makolahq/makola-backend/internal/webhooks/paystack"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, event *paystackwebhook.Event) error
}

type signatureVerifier interface {
	VerifySignature(payload []byte, signature string) bool
	SignatureHeader() string
}

// PaystackWebhook handles payment gateway callbacks. Once the signature
// checks out the gateway always gets a 200; processing failures are logged
// and reconciled out of band.
func PaystackWebhook(svc PaystackWebhookService, verifier signatureVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(verifier.SignatureHeader())
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature missing"))
			return
		}
		if !verifier.VerifySignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		var event paystackwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			if logg != nil {
				logg.Error(ctx, "malformed gateway event payload", err)
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil && logg != nil {
			ctx = logg.WithField(ctx, "event_type", event.Event)
			logg.Error(ctx, "gateway event processing failed", err)
		}
		responses.WriteSuccess(w, nil)
	}
}
