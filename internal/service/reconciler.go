package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/notification"
)

// Reconciler applies a normalized payment event to an order exactly once.
// Providers deliver at least once, possibly out of order, and the client
// confirmation path can race a webhook for the same order; the idempotency
// check plus the guarded store update make the combination safe without any
// in-process lock.
type Reconciler struct {
	orders    OrderStore
	history   HistoryStore
	discounts DiscountStore
	users     UserDirectory
	notifier  Notifier
	logger    *zap.SugaredLogger
}

func NewReconciler(
	orders OrderStore,
	history HistoryStore,
	discounts DiscountStore,
	users UserDirectory,
	notifier Notifier,
	logger *zap.SugaredLogger,
) *Reconciler {
	return &Reconciler{
		orders:    orders,
		history:   history,
		discounts: discounts,
		users:     users,
		notifier:  notifier,
		logger:    logger,
	}
}

// Reconcile drives the state machine for one event.
//
// Error contract: ErrOrderNotFound is terminal (redelivery cannot fix a bad
// reference), ErrPersistence is retryable and must surface as a 5xx so the
// provider redelivers. Stale and duplicate deliveries return a success result
// so the provider stops redelivering something that is already settled.
func (r *Reconciler) Reconcile(ctx context.Context, event domain.PaymentEvent) (*domain.ReconciliationResult, error) {
	order, err := r.orders.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			r.logger.Errorw("reconcile: order not found",
				"order_id", event.OrderID, "provider", event.Provider,
				"transaction_id", event.ProviderTransactionID)
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	// Duplicate delivery of an already-recorded provider transaction. The
	// first delivery did all the work; redoing side effects would double
	// notifications and counter increments.
	if event.ProviderTransactionID != "" && order.PaymentReference == event.ProviderTransactionID {
		r.logger.Infow("reconcile: duplicate delivery",
			"order_id", order.ID, "transaction_id", event.ProviderTransactionID)
		return &domain.ReconciliationResult{
			Status:  domain.ResultDuplicate,
			OrderID: order.ID,
		}, nil
	}

	target := domain.OrderStatusCompleted
	if event.Outcome == domain.OutcomeFailure {
		target = domain.OrderStatusPaymentFailed
	}

	if !order.CanTransition(target) {
		r.logger.Infow("reconcile: stale transition ignored",
			"order_id", order.ID, "current_status", order.Status,
			"target_status", target, "transaction_id", event.ProviderTransactionID)
		return &domain.ReconciliationResult{
			Status:  domain.ResultIgnored,
			OrderID: order.ID,
			Reason:  fmt.Sprintf("transition %s -> %s not allowed", order.Status, target),
		}, nil
	}

	firstPaid := false

	switch target {
	case domain.OrderStatusCompleted:
		applied, err := r.orders.MarkPaid(ctx, order.ID, event.ProviderTransactionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		if !applied {
			// A concurrent delivery won the compare-and-swap.
			return &domain.ReconciliationResult{
				Status:  domain.ResultIgnored,
				OrderID: order.ID,
				Reason:  "superseded by concurrent update",
			}, nil
		}
		firstPaid = !order.IsPaid()

	case domain.OrderStatusPaymentFailed:
		applied, err := r.orders.MarkFailed(ctx, order.ID, event.ProviderTransactionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
		}
		if !applied {
			return &domain.ReconciliationResult{
				Status:  domain.ResultIgnored,
				OrderID: order.ID,
				Reason:  "superseded by concurrent update",
			}, nil
		}
	}

	// The order row is already committed. Everything below is best effort:
	// failing the whole reconciliation now would trigger a harmful
	// redelivery of an event that already took effect.
	r.appendHistory(ctx, order, target, event)

	if firstPaid {
		r.dispatchSideEffects(ctx, order, event)
	}

	return &domain.ReconciliationResult{
		Status:    domain.ResultApplied,
		OrderID:   order.ID,
		NewStatus: target,
		FirstPaid: firstPaid,
	}, nil
}

func (r *Reconciler) appendHistory(ctx context.Context, order *domain.Order, status domain.OrderStatus, event domain.PaymentEvent) {
	comment := fmt.Sprintf("%s notification, transaction %s", event.Provider, event.ProviderTransactionID)
	if err := r.history.Append(ctx, order.ID, status, comment); err != nil {
		r.logger.Warnw("reconcile: status history append failed",
			"order_id", order.ID, "status", status, "error", err)
	}
}

func (r *Reconciler) dispatchSideEffects(ctx context.Context, order *domain.Order, event domain.PaymentEvent) {
	if order.DiscountCode != "" {
		if err := r.discounts.IncrementUsage(ctx, order.DiscountCode); err != nil {
			r.logger.Warnw("reconcile: discount usage increment failed",
				"order_id", order.ID, "code", order.DiscountCode, "error", err)
		}
	}

	email, err := r.users.EmailForUser(ctx, order.UserID)
	if err != nil {
		r.logger.Warnw("reconcile: user email lookup failed",
			"order_id", order.ID, "user_id", order.UserID, "error", err)
		return
	}

	data := map[string]interface{}{
		"total_cents": order.TotalCents,
		"currency":    order.Currency,
	}
	if err := r.notifier.Notify(ctx, notification.TemplateOrderConfirmation, email, order.ID, data); err != nil {
		r.logger.Warnw("reconcile: confirmation notification failed",
			"order_id", order.ID, "recipient", email, "error", err)
	}
}
