package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/domain"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/metrics"
	"github.com/google/uuid"
)

// WebhookOutcome is what happened to one webhook delivery. Every outcome is
// acknowledged to the provider.
type WebhookOutcome string

const (
	WebhookApplied   WebhookOutcome = "applied"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookUnmatched WebhookOutcome = "unmatched"
	WebhookRejected  WebhookOutcome = "rejected"
	WebhookIgnored   WebhookOutcome = "ignored"
)

// An idempotency lock older than this is treated as abandoned by its owner.
const staleLockAge = 5 * time.Minute

type PaymentService struct {
	coordinator *postgres.TransactionCoordinator
	repos       postgres.Repositories
	registry    application.ProviderRegistry
	store       config.StoreConfig
	providers   config.ProvidersConfig
	logger      *slog.Logger
}

func NewPaymentService(
	db *postgres.DB,
	registry application.ProviderRegistry,
	store config.StoreConfig,
	providers config.ProvidersConfig,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		coordinator: postgres.NewTransactionCoordinator(db),
		repos:       postgres.NewRepositories(db.Pool),
		registry:    registry,
		store:       store,
		providers:   providers,
		logger:      logger,
	}
}

// CreatePayment starts a payment attempt for an order. With an idempotency
// key, at most one attempt is ever created and sent to the provider for that
// key; every other caller presenting it gets the same intent back.
func (s *PaymentService) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (*domain.PaymentIntent, error) {
	if cmd.OrderID == "" {
		return nil, domain.NewMissingRequiredFieldError("order_id")
	}
	provider, err := domain.ParseProvider(cmd.Provider)
	if err != nil {
		return nil, err
	}
	money, err := domain.NewMoney(cmd.Amount, cmd.Currency)
	if err != nil {
		return nil, err
	}
	adapter, _, err := s.registry.Lookup(provider)
	if err != nil {
		return nil, err
	}
	if cmd.TenantID == "" {
		cmd.TenantID = s.store.TenantID
	}

	key := cmd.IdempotencyKey
	requestHash := ComputeHash(cmd)

	if key != "" {
		existing, err := s.repos.Idempotency.FindByKey(ctx, key)
		switch {
		case err == nil:
			return s.resolveExisting(ctx, existing, requestHash)
		case !errors.Is(err, domain.ErrNotFound):
			return nil, application.NewInternalError(err)
		}
	}

	intentID := uuid.NewString()
	var (
		intent *domain.PaymentIntent
		order  *domain.Order
	)
	err = s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		at := now()
		// The key goes in first: a concurrent holder of the same key blocks
		// here until the winner commits, then fails on the unique index.
		if key != "" {
			if err := repos.Idempotency.AcquireLock(ctx, key, intentID, requestHash, at); err != nil {
				return err
			}
		}

		var err error
		order, err = repos.Orders.FindByIDForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderCreated && order.Status != domain.OrderAwaitingPayment {
			return domain.NewInvalidTransitionError("order", order.Status, domain.OrderAwaitingPayment)
		}
		if money.Amount != order.Total {
			return domain.NewAmountMismatchError(order.Total, money.Amount)
		}
		if money.Currency != order.Currency {
			return domain.NewInvalidInputError("currency %s does not match order currency %s", money.Currency, order.Currency)
		}

		open, err := repos.Payments.FindOpenByOrder(ctx, order.ID)
		switch {
		case err == nil:
			previous := open.Status
			if !open.ApplyExpiry(at) {
				return domain.NewPaymentInProgressError(order.ID)
			}
			if err := repos.Payments.Update(ctx, open, previous); err != nil {
				return err
			}
			s.logger.Info("payment intent expired", "payment_id", open.ID, "order_id", order.ID)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		expiresAt := at.Add(s.expiryFor(provider))
		intent, err = domain.NewPaymentIntent(intentID, order.ID, cmd.TenantID, money, provider, cmd.Description, key, &expiresAt, at)
		if err != nil {
			return err
		}
		return repos.Payments.Create(ctx, intent)
	})
	if err != nil {
		if errors.Is(err, postgres.ErrDuplicateIdempotencyKey) {
			return s.waitForCompletion(ctx, key, requestHash)
		}
		return nil, err
	}

	s.logger.Info("calling payment provider",
		"payment_id", intent.ID,
		"order_id", order.ID,
		"provider", provider,
		"amount", intent.Amount,
	)

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout(provider))
	result, callErr := adapter.CreatePayment(callCtx, application.ProviderPaymentRequest{
		IntentID:    intent.ID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		Description: intent.Description,
	})
	cancel()

	// The attempt has reached the provider; record its outcome even if the
	// caller has gone away.
	ctx = context.WithoutCancel(ctx)
	if callErr != nil {
		return intent, s.failPayment(ctx, intent, key, asProviderError(provider, callErr))
	}
	return s.finalizePayment(ctx, intent, key, result)
}

func (s *PaymentService) resolveExisting(ctx context.Context, key *postgres.IdempotencyKey, requestHash string) (*domain.PaymentIntent, error) {
	if key.RequestHash != requestHash {
		return nil, domain.NewIdempotencyMismatchError()
	}
	if key.LockedAt != nil {
		return s.waitForCompletion(ctx, key.Key, requestHash)
	}
	intent, err := s.repos.Payments.FindByID(ctx, key.PaymentID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	return s.expireIfDue(ctx, intent)
}

func (s *PaymentService) waitForCompletion(ctx context.Context, idempotencyKey, requestHash string) (*domain.PaymentIntent, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(s.store.IdempotencyWait)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, application.NewTimeoutError()
		case <-ticker.C:
			key, err := s.repos.Idempotency.FindByKey(ctx, idempotencyKey)
			if err != nil {
				return nil, application.NewInternalError(err)
			}

			if key.RequestHash != requestHash {
				return nil, domain.NewIdempotencyMismatchError()
			}

			if key.LockedAt == nil {
				intent, err := s.repos.Payments.FindByID(ctx, key.PaymentID)
				if err != nil {
					return nil, application.NewInternalError(err)
				}
				return s.expireIfDue(ctx, intent)
			}

			if time.Since(*key.LockedAt) > staleLockAge {
				return nil, application.NewRequestProcessingError()
			}
		}
	}
}

func (s *PaymentService) finalizePayment(ctx context.Context, intent *domain.PaymentIntent, key string, result *application.ProviderPaymentResult) (*domain.PaymentIntent, error) {
	at := now()
	previous := intent.Status
	if err := intent.Accept(result.ProviderRef, result.Status, result.NextAction, at); err != nil {
		return intent, s.failPayment(ctx, intent, key, &application.ProviderError{
			Provider:   intent.Provider,
			Code:       "invalid_status",
			Message:    err.Error(),
			StatusCode: http.StatusBadGateway,
		})
	}
	if intent.Status == domain.PaymentFailed {
		intent.Status = previous
		return intent, s.failPayment(ctx, intent, key, &application.ProviderError{
			Provider:   intent.Provider,
			Code:       "payment_rejected",
			Message:    "provider rejected the payment",
			StatusCode: http.StatusPaymentRequired,
		})
	}

	// Rows are locked key, order, payment: the order CreatePayment uses.
	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		if key != "" {
			if err := repos.Idempotency.ReleaseLock(ctx, key); err != nil {
				return err
			}
		}
		order, err := repos.Orders.FindByIDForUpdate(ctx, intent.OrderID)
		if err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, intent, previous); err != nil {
			return err
		}

		if order.Status == domain.OrderCreated || order.Status == domain.OrderAwaitingPayment {
			expected := order.Status
			ev, err := order.AwaitPayment(intent.Provider, deref(intent.ProviderRef), at)
			if err != nil {
				return err
			}
			if err := saveTransition(ctx, repos, order, expected, ev); err != nil {
				return err
			}
		} else {
			s.logger.Warn("order moved on while payment was created",
				"order_id", order.ID,
				"payment_id", intent.ID,
				"status", order.Status,
			)
		}

		if intent.Status == domain.PaymentCompleted {
			return markOrderPaid(ctx, repos, intent, at, s.logger)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("ORPHANED_PROVIDER_PAYMENT_RISK",
			"payment_id", intent.ID,
			"provider_ref", deref(intent.ProviderRef),
			"error", err,
			"message", "provider accepted the payment but the result could not be stored",
		)
		return intent, application.NewInternalError(err)
	}

	metrics.PaymentsCreated.WithLabelValues(string(intent.Provider), string(intent.Status)).Inc()
	s.logger.Info("payment created",
		"payment_id", intent.ID,
		"order_id", intent.OrderID,
		"status", intent.Status,
	)
	return intent, nil
}

// failPayment records a failed create call on the intent and the order
// timeline, releases the idempotency key, and returns providerErr so the
// caller sees the same outcome as the stored record.
func (s *PaymentService) failPayment(ctx context.Context, intent *domain.PaymentIntent, key string, providerErr *application.ProviderError) error {
	at := now()
	previous := intent.Status
	if err := intent.Fail(providerErr.Code, providerErr.Message, at); err != nil {
		return application.NewInternalError(err)
	}

	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		if key != "" {
			if err := repos.Idempotency.ReleaseLock(ctx, key); err != nil {
				return err
			}
		}
		order, err := repos.Orders.FindByIDForUpdate(ctx, intent.OrderID)
		if err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, intent, previous); err != nil {
			return err
		}
		return recordEvent(ctx, repos, order, order.PaymentFailed(intent.ID, providerErr.Code, at))
	})
	if err != nil {
		s.logger.Error("failed to record payment failure",
			"payment_id", intent.ID,
			"error", err,
		)
		return application.NewInternalError(err)
	}

	metrics.PaymentsCreated.WithLabelValues(string(intent.Provider), string(domain.PaymentFailed)).Inc()
	s.logger.Warn("payment failed",
		"payment_id", intent.ID,
		"order_id", intent.OrderID,
		"code", providerErr.Code,
		"category", application.CategorizeError(providerErr),
	)
	return providerErr
}

// CheckStatus returns terminal intents as stored and refreshes open ones
// from the provider. Bank transfers awaiting confirmation are never polled.
func (s *PaymentService) CheckStatus(ctx context.Context, paymentID string) (*domain.PaymentIntent, error) {
	intent, err := s.repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if intent.IsTerminal() {
		return intent, nil
	}
	if intent, err = s.expireIfDue(ctx, intent); err != nil || intent.IsTerminal() {
		return intent, err
	}
	if intent.Status == domain.PaymentAwaitingConfirmation || intent.ProviderRef == nil {
		return intent, nil
	}

	adapter, _, err := s.registry.Lookup(intent.Provider)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout(intent.Provider))
	status, err := adapter.CheckStatus(callCtx, *intent.ProviderRef)
	cancel()
	if err != nil {
		s.logger.Warn("payment status poll failed",
			"payment_id", intent.ID,
			"provider", intent.Provider,
			"error", err,
		)
		return intent, asProviderError(intent.Provider, err)
	}

	updated, _, err := s.applyProviderStatus(ctx, intent.ID, statusUpdate{Status: status}, "poll")
	return updated, err
}

type statusUpdate struct {
	Status       domain.PaymentStatus
	ErrorCode    string
	ErrorMessage string
}

// applyProviderStatus moves an intent to a status reported by its provider
// under a row lock. It reports whether a transition was applied; replays and
// out-of-order reports are no-ops.
func (s *PaymentService) applyProviderStatus(ctx context.Context, paymentID string, update statusUpdate, source string) (*domain.PaymentIntent, bool, error) {
	var (
		intent  *domain.PaymentIntent
		applied bool
	)
	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		order, err := s.lockOrderOf(ctx, repos, paymentID)
		if err != nil {
			return err
		}
		intent, err = repos.Payments.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if intent.Status == update.Status {
			return nil
		}

		at := now()
		if intent.IsExpired(at) {
			if update.Status == domain.PaymentCompleted {
				s.logger.Error("LATE_PAYMENT_RECONCILIATION_REQUIRED",
					"payment_id", intent.ID,
					"order_id", intent.OrderID,
					"provider_ref", deref(intent.ProviderRef),
					"message", "provider reported completion after the intent expired",
				)
			}
			previous := intent.Status
			intent.ApplyExpiry(at)
			return repos.Payments.Update(ctx, intent, previous)
		}

		previous := intent.Status
		if update.Status == domain.PaymentFailed {
			err = intent.Fail(update.ErrorCode, update.ErrorMessage, at)
		} else {
			err = intent.ApplyProviderStatus(update.Status, at)
		}
		if err != nil {
			s.logger.Warn("ignoring provider status",
				"payment_id", intent.ID,
				"from", previous,
				"to", update.Status,
				"source", source,
			)
			return nil
		}
		if err := repos.Payments.Update(ctx, intent, previous); err != nil {
			return err
		}
		applied = true

		switch intent.Status {
		case domain.PaymentCompleted:
			return markOrderPaid(ctx, repos, intent, at, s.logger)
		case domain.PaymentFailed:
			return recordEvent(ctx, repos, order, order.PaymentFailed(intent.ID, update.ErrorCode, at))
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		metrics.PaymentTransitions.WithLabelValues(string(intent.Provider), string(intent.Status), source).Inc()
		s.logger.Info("payment status updated",
			"payment_id", intent.ID,
			"status", intent.Status,
			"source", source,
		)
	}
	return intent, applied, nil
}

// lockOrderOf locks the order owning paymentID. Every transaction that
// touches both rows takes the order first.
func (s *PaymentService) lockOrderOf(ctx context.Context, repos postgres.Repositories, paymentID string) (*domain.Order, error) {
	owner, err := repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return repos.Orders.FindByIDForUpdate(ctx, owner.OrderID)
}

// expireIfDue lazily cancels an open intent that is past its expiry.
func (s *PaymentService) expireIfDue(ctx context.Context, intent *domain.PaymentIntent) (*domain.PaymentIntent, error) {
	if !intent.IsExpired(now()) {
		return intent, nil
	}
	err := s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		fresh, err := repos.Payments.FindByIDForUpdate(ctx, intent.ID)
		if err != nil {
			return err
		}
		intent = fresh
		previous := fresh.Status
		if !fresh.ApplyExpiry(now()) {
			return nil
		}
		return repos.Payments.Update(ctx, fresh, previous)
	})
	if err != nil {
		return nil, err
	}
	if intent.Status == domain.PaymentCancelled {
		metrics.PaymentTransitions.WithLabelValues(string(intent.Provider), string(intent.Status), "expiry").Inc()
		s.logger.Info("payment intent expired", "payment_id", intent.ID, "order_id", intent.OrderID)
	}
	return intent, nil
}

// ConfirmManualTransfer is the only way a bank transfer completes.
func (s *PaymentService) ConfirmManualTransfer(ctx context.Context, cmd ConfirmTransferCommand) (*domain.PaymentIntent, error) {
	if cmd.ConfirmedBy == "" {
		return nil, domain.NewUnauthorizedError("confirm bank transfer")
	}
	intent, err := s.repos.Payments.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.expireIfDue(ctx, intent); err != nil {
		return nil, err
	}

	err = s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		if _, err := repos.Orders.FindByIDForUpdate(ctx, intent.OrderID); err != nil {
			return err
		}
		var err error
		intent, err = repos.Payments.FindByIDForUpdate(ctx, cmd.PaymentID)
		if err != nil {
			return err
		}
		at := now()
		previous := intent.Status
		if err := intent.ConfirmManually(cmd.ConfirmedBy, cmd.BankReference, at); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, intent, previous); err != nil {
			return err
		}
		return markOrderPaid(ctx, repos, intent, at, s.logger)
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentTransitions.WithLabelValues(string(intent.Provider), string(intent.Status), "manual").Inc()
	s.logger.Info("bank transfer confirmed",
		"payment_id", intent.ID,
		"order_id", intent.OrderID,
		"confirmed_by", cmd.ConfirmedBy,
	)
	return intent, nil
}

// Refund returns money on a completed intent. A failed provider call leaves
// the intent exactly as it was.
func (s *PaymentService) Refund(ctx context.Context, cmd RefundCommand) (*domain.PaymentIntent, error) {
	intent, err := s.repos.Payments.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		return nil, err
	}
	if _, err := intent.ResolveRefundAmount(cmd.Amount); err != nil {
		return nil, err
	}
	if intent.ProviderRef == nil {
		return nil, domain.NewInvalidInputError("payment %s has no provider reference", intent.ID)
	}
	adapter, _, err := s.registry.Lookup(intent.Provider)
	if err != nil {
		return nil, err
	}

	claimed, err := s.repos.Payments.ClaimForRefund(ctx, intent.ID, now(), s.store.RefundClaimTTL)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	if !claimed {
		return nil, domain.NewConflictError("a refund for payment %s is already in progress", intent.ID)
	}
	release := func() {
		if err := s.repos.Payments.ReleaseClaim(context.WithoutCancel(ctx), intent.ID); err != nil {
			s.logger.Error("failed to release refund claim", "payment_id", intent.ID, "error", err)
		}
	}

	// Re-read under the claim: an earlier refund may have just landed.
	if intent, err = s.repos.Payments.FindByID(ctx, cmd.PaymentID); err != nil {
		release()
		return nil, err
	}
	amount, err := intent.ResolveRefundAmount(cmd.Amount)
	if err != nil {
		release()
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout(intent.Provider))
	res, err := adapter.Refund(callCtx, application.ProviderRefundRequest{
		ProviderRef:    *intent.ProviderRef,
		Amount:         amount,
		Currency:       intent.Currency,
		Reason:         cmd.Reason,
		IdempotencyKey: uuid.NewString(),
	})
	cancel()
	if err != nil {
		release()
		s.logger.Warn("refund failed",
			"payment_id", intent.ID,
			"amount", amount,
			"error", err,
		)
		return intent, asProviderError(intent.Provider, err)
	}

	ctx = context.WithoutCancel(ctx)
	var refunded *domain.PaymentIntent
	err = s.coordinator.WithTransaction(ctx, func(ctx context.Context, repos postgres.Repositories) error {
		order, err := repos.Orders.FindByIDForUpdate(ctx, intent.OrderID)
		if err != nil {
			return err
		}
		fresh, err := repos.Payments.FindByIDForUpdate(ctx, intent.ID)
		if err != nil {
			return err
		}
		at := now()
		previous := fresh.Status
		if err := fresh.RecordRefund(amount, cmd.Reason, at); err != nil {
			return err
		}
		if err := repos.Payments.Update(ctx, fresh, previous); err != nil {
			return err
		}
		if err := repos.Payments.ReleaseClaim(ctx, fresh.ID); err != nil {
			return err
		}
		refunded = fresh

		expected := order.Status
		ev, err := order.RecordRefund(fresh.ID, amount, fresh.Status == domain.PaymentRefunded, cmd.Reason, cmd.Actor, at)
		if err != nil {
			s.logger.Error("ORDER_REFUND_STATE_MISMATCH",
				"order_id", order.ID,
				"payment_id", fresh.ID,
				"status", order.Status,
				"error", err,
			)
			return nil
		}
		if order.Status == expected {
			s.logger.Info("refund recorded without status change",
				"order_id", order.ID,
				"payment_id", fresh.ID,
				"status", order.Status,
			)
		}
		return saveTransition(ctx, repos, order, expected, ev)
	})
	if err != nil {
		release()
		s.logger.Error("REFUND_RECONCILIATION_REQUIRED",
			"payment_id", intent.ID,
			"refund_ref", res.RefundRef,
			"amount", amount,
			"error", err,
			"message", "provider refunded but the refund could not be recorded",
		)
		return intent, application.NewInternalError(err)
	}

	metrics.PaymentTransitions.WithLabelValues(string(refunded.Provider), string(refunded.Status), "refund").Inc()
	s.logger.Info("payment refunded",
		"payment_id", refunded.ID,
		"amount", amount,
		"refund_ref", res.RefundRef,
		"status", refunded.Status,
	)
	return refunded, nil
}

// HandleWebhook verifies, decodes and applies one provider callback. Only
// internal failures are returned as errors.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, payload []byte, signature string) (WebhookOutcome, error) {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return "", err
	}
	adapter, decode, err := s.registry.Lookup(provider)
	if err != nil {
		return "", err
	}

	outcome := func(o WebhookOutcome) WebhookOutcome {
		metrics.WebhookOutcomes.WithLabelValues(string(provider), string(o)).Inc()
		return o
	}

	if !adapter.VerifyWebhook(payload, signature) {
		s.logger.Warn("webhook signature rejected",
			"provider", provider,
			"error", domain.NewSignatureInvalidError(string(provider)))
		return outcome(WebhookRejected), nil
	}

	event, err := decode(payload)
	if err != nil {
		s.logger.Warn("webhook payload ignored", "provider", provider, "error", err)
		return outcome(WebhookIgnored), nil
	}

	intent, err := s.repos.Payments.FindByProviderRef(ctx, provider, event.ProviderRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("webhook for unknown payment",
				"provider", provider,
				"provider_ref", event.ProviderRef,
				"event_id", event.EventID,
			)
			return outcome(WebhookUnmatched), nil
		}
		return "", application.NewInternalError(err)
	}

	_, applied, err := s.applyProviderStatus(ctx, intent.ID, statusUpdate{
		Status:       event.Status,
		ErrorCode:    event.ErrorCode,
		ErrorMessage: event.ErrorMessage,
	}, "webhook")
	if err != nil {
		return "", err
	}
	if !applied {
		return outcome(WebhookDuplicate), nil
	}
	return outcome(WebhookApplied), nil
}

// ExpireStale cancels up to limit open intents whose expiry has passed.
func (s *PaymentService) ExpireStale(ctx context.Context, limit int) (int, error) {
	expired, err := s.repos.Payments.FindExpired(ctx, now(), limit)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, intent := range expired {
		updated, err := s.expireIfDue(ctx, intent)
		if err != nil {
			s.logger.Error("failed to expire payment", "payment_id", intent.ID, "error", err)
			continue
		}
		if updated.Status == domain.PaymentCancelled {
			count++
		}
	}
	return count, nil
}

// ReconcileOpen polls the provider for open intents of automatically
// confirmed rails that have not changed for at least minAge.
func (s *PaymentService) ReconcileOpen(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	at := now()
	open, err := s.repos.Payments.FindReconcilable(ctx, at, at.Add(-minAge), limit)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, intent := range open {
		updated, err := s.CheckStatus(ctx, intent.ID)
		if err != nil {
			s.logger.Warn("reconcile poll failed", "payment_id", intent.ID, "error", err)
			continue
		}
		if updated.Status != intent.Status {
			count++
		}
	}
	return count, nil
}

func (s *PaymentService) expiryFor(provider domain.Provider) time.Duration {
	if provider.RequiresManualConfirmation() {
		return s.store.BankTransferExpiry
	}
	return s.store.PaymentExpiry
}

func (s *PaymentService) callTimeout(provider domain.Provider) time.Duration {
	if cfg, ok := s.providers.ByName(string(provider)); ok && cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 30 * time.Second
}

// asProviderError normalizes any failure of a provider call.
func asProviderError(provider domain.Provider, err error) *application.ProviderError {
	if providerErr, ok := application.IsProviderError(err); ok {
		return providerErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &application.ProviderError{
			Provider:   provider,
			Code:       "timeout",
			Message:    "provider did not answer in time",
			StatusCode: http.StatusGatewayTimeout,
		}
	}
	return &application.ProviderError{
		Provider:   provider,
		Code:       "network_error",
		Message:    fmt.Sprintf("provider call failed: %v", err),
		StatusCode: http.StatusBadGateway,
	}
}
