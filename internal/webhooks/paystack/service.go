package paystackwebhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/internal/orders"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/metrics"
	"github.com/makolahq/makola-backend/pkg/outbox"
	"github.com/makolahq/makola-backend/pkg/outbox/payloads"
	"github.com/makolahq/makola-backend/pkg/redis"
)

const (
	eventChargeSuccess = "charge.success"
	idempotencyScope   = "paystack"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Event is the gateway callback payload after signature verification.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the charge fields the reconciler uses. Amount is in
// minor units, matching the stored payment.
type EventData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

// ServiceParams collects the reconciler dependencies.
type ServiceParams struct {
	OrdersRepo        orders.Repository
	TransactionRunner txRunner
	Events            eventEmitter
	Idempotency       redis.IdempotencyStore
	IdempotencyTTL    time.Duration
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
}

// Service reconciles asynchronous gateway callbacks against payment and
// order state. Callers must have verified the webhook signature already.
type Service struct {
	ordersRepo     orders.Repository
	txRunner       txRunner
	events         eventEmitter
	idempotency    redis.IdempotencyStore
	idempotencyTTL time.Duration
	metrics        *metrics.CheckoutMetrics
	logg           *logger.Logger
}

// NewService validates and wires the reconciler. The idempotency store is
// optional: without it the in-transaction payment-status check still keeps
// replays from double-applying.
func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event emitter required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	ttl := params.IdempotencyTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		ordersRepo:     params.OrdersRepo,
		txRunner:       params.TransactionRunner,
		events:         params.Events,
		idempotency:    params.Idempotency,
		idempotencyTTL: ttl,
		metrics:        params.Metrics,
		logg:           params.Logger,
	}, nil
}

// HandleEvent applies one verified gateway event. Unknown event types are
// acknowledged without effect so the gateway stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	if !strings.EqualFold(event.Event, eventChargeSuccess) {
		s.metrics.IncWebhookEvent("ignored")
		s.logg.Info(s.logg.WithField(ctx, "event_type", event.Event), "ignoring unhandled gateway event")
		return nil
	}

	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		s.metrics.IncWebhookEvent("malformed")
		return pkgerrors.New(pkgerrors.CodeValidation, "charge reference missing")
	}
	ctx = s.logg.WithField(ctx, "payment_reference", reference)

	claimed, key := s.claim(ctx, reference)
	if !claimed {
		s.metrics.IncWebhookEvent("duplicate")
		s.logg.Info(ctx, "gateway event already processed")
		return nil
	}

	applied, err := s.applyChargeSuccess(ctx, event)
	if err != nil {
		// Release the claim so a gateway retry can reprocess the event.
		s.release(ctx, key)
		s.metrics.IncWebhookEvent("failed")
		return err
	}
	if applied {
		s.metrics.IncWebhookEvent("applied")
		s.logg.Info(ctx, "payment confirmed via webhook")
	} else {
		s.metrics.IncWebhookEvent("duplicate")
	}
	return nil
}

// applyChargeSuccess moves Payment to SUCCESS and the parent order out of
// PAYMENT_PENDING in one transaction. The payment-status check makes the
// transition idempotent even without the Redis guard.
func (s *Service) applyChargeSuccess(ctx context.Context, event *Event) (bool, error) {
	applied := false
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		payment, err := repo.FindPaymentByReference(ctx, event.Data.Reference)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for reference").
					WithDetails(map[string]any{"reference": event.Data.Reference})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
		}
		if payment.Status == enums.PaymentStatusSuccess {
			return nil
		}

		if event.Data.Amount != 0 && event.Data.Amount != payment.AmountPesewas {
			return pkgerrors.New(pkgerrors.CodeConflict, "charge amount mismatch").
				WithDetails(map[string]any{
					"expected": payment.AmountPesewas,
					"received": event.Data.Amount,
				})
		}

		paidAt := parsePaidAt(event.Data.PaidAt)
		if err := repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":  enums.PaymentStatusSuccess,
			"paid_at": paidAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating payment")
		}

		order, err := repo.FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if order.Status == enums.OrderStatusPaymentPending {
			if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusProcessing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
			}
		}

		applied = true
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				Reference:     payment.Reference,
				AmountPesewas: payment.AmountPesewas,
			},
		})
	})
	return applied, err
}

// claim takes the Redis idempotency slot for this reference. Redis being
// unavailable degrades to processing the event; the transaction-level check
// still prevents double application.
func (s *Service) claim(ctx context.Context, reference string) (bool, string) {
	if s.idempotency == nil {
		return true, ""
	}
	key := s.idempotency.IdempotencyKey(idempotencyScope, reference)
	ok, err := s.idempotency.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.idempotencyTTL)
	if err != nil {
		s.logg.Warn(ctx, "idempotency store unavailable, processing anyway")
		return true, ""
	}
	return ok, key
}

func (s *Service) release(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Del(ctx, key); err != nil {
		s.logg.Warn(ctx, "failed to release idempotency key")
	}
}

func parsePaidAt(raw string) time.Time {
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
		return ts
	}
	return time.Now().UTC()
}
