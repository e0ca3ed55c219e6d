package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"bnpl-gateway/internal/domain"
)

// Outcome says what a reconciliation run did to the order.
type Outcome string

const (
	OutcomeCancelled        Outcome = "cancelled"
	OutcomePendingRetry     Outcome = "pending_retry"
	OutcomeFailed           Outcome = "failed"
	OutcomeOnHold           Outcome = "on_hold"
	OutcomeCompleted        Outcome = "completed"
	OutcomeTimeoutOnHold    Outcome = "timeout_on_hold"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeIgnored          Outcome = "ignored"
)

const (
	triggerReturn  = "return"
	triggerWebhook = "webhook"
)

type Settings struct {
	Secret            string
	AmountEpsilon     float64
	AutocompleteOrder bool
}

// AuditEvent is published once per reconciliation run that resolved an
// order, for downstream consumers (finance dashboards, alerting).
type AuditEvent struct {
	ID          string             `json:"id"`
	OrderID     int64              `json:"orderId"`
	Reference   string             `json:"reference"`
	Trigger     string             `json:"trigger"`
	Outcome     Outcome            `json:"outcome"`
	PriorStatus domain.OrderStatus `json:"priorStatus"`
	At          time.Time          `json:"at"`
}

type AuditPublisher interface {
	Publish(ctx context.Context, evt AuditEvent) error
}

type OutcomeRecorder interface {
	ReconcileOutcome(trigger, outcome string)
}

// Reconciler aligns local order state with the processor's authoritative
// transaction status. All dependencies are injected; there is no hidden
// global gateway instance.
type Reconciler struct {
	Store    OrderStore
	Verifier Verifier
	Settings Settings
	Events   AuditPublisher
	Metrics  OutcomeRecorder
	Log      *slog.Logger

	mu    sync.Mutex
	locks map[int64]*orderLock
}

type orderLock struct {
	sync.Mutex
	refs int
}

func NewReconciler(store OrderStore, verifier Verifier, settings Settings) *Reconciler {
	if settings.AmountEpsilon <= 0 {
		settings.AmountEpsilon = 0.01
	}
	return &Reconciler{
		Store:    store,
		Verifier: verifier,
		Settings: settings,
		locks:    make(map[int64]*orderLock),
	}
}

// FromReturn reconciles an order after the browser redirect back from the
// processor. customerCancelled is set when the redirect carries the
// cancel flag.
func (r *Reconciler) FromReturn(ctx context.Context, ref string, customerCancelled bool) (Outcome, error) {
	orderID, err := domain.ParseReference(ref)
	if err != nil {
		return "", err
	}
	unlock := r.lockOrder(orderID)
	defer unlock()

	order, err := r.Store.Get(ctx, orderID)
	if err != nil {
		return "", err
	}

	outcome, err := r.verifyAndApply(ctx, order, ref, customerCancelled, triggerReturn)
	if err != nil {
		return "", err
	}
	r.report(ctx, order, ref, triggerReturn, outcome)
	return outcome, nil
}

// FromWebhook reconciles an order from an asynchronous processor push.
// The idempotency guard runs before any verification so a late or
// duplicate delivery cannot double-credit the order.
func (r *Reconciler) FromWebhook(ctx context.Context, ref string) (Outcome, error) {
	orderID, err := domain.ParseReference(ref)
	if err != nil {
		return "", err
	}
	unlock := r.lockOrder(orderID)
	defer unlock()

	order, err := r.Store.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !reconcilable(order.Status) {
		r.record(triggerWebhook, OutcomeAlreadyProcessed)
		return OutcomeAlreadyProcessed, nil
	}

	outcome, err := r.verifyAndApply(ctx, order, ref, false, triggerWebhook)
	if err != nil {
		return "", err
	}
	r.report(ctx, order, ref, triggerWebhook, outcome)
	return outcome, nil
}

// reconcilable reports whether the engine may still act on an order.
// failed is included so a customer retrying payment in the same session
// can revive a failed order.
func reconcilable(status domain.OrderStatus) bool {
	switch status {
	case domain.StatusPending, domain.StatusOnHold, domain.StatusCancelled, domain.StatusFailed:
		return true
	}
	return false
}

func (r *Reconciler) verifyAndApply(ctx context.Context, order *domain.Order, ref string, customerCancelled bool, trigger string) (Outcome, error) {
	_ = r.Store.AddNote(ctx, order.ID, "Verifying the payment on Vida...", false)

	var (
		tx  domain.RemoteTransaction
		err error
	)
	if trigger == triggerWebhook {
		tx, err = r.Verifier.VerifyLegacy(ctx, ref, r.Settings.Secret)
	} else {
		tx, err = r.Verifier.Verify(ctx, ref, r.Settings.Secret)
	}
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTimeout) {
			return r.applyTimeout(ctx, order, ref)
		}
		return "", err
	}
	return r.apply(ctx, order, tx, ref, customerCancelled)
}

// apply runs the decision table against a decoded remote status. Checked
// in order, first match wins.
func (r *Reconciler) apply(ctx context.Context, order *domain.Order, tx domain.RemoteTransaction, ref string, customerCancelled bool) (Outcome, error) {
	switch {
	case customerCancelled && (tx.Status == domain.TxCancelled || tx.Status == domain.TxPending):
		if err := r.Store.SetStatus(ctx, order.ID, domain.StatusCancelled); err != nil {
			return "", err
		}
		_ = r.Store.AddNote(ctx, order.ID, "The customer clicked on the cancel button on Checkout.", true)
		_ = r.Store.AddNote(ctx, order.ID, "Attention: Customer clicked on the cancel button on the payment gateway. We have updated the order to cancelled status.", false)
		return OutcomeCancelled, nil

	case tx.Status == domain.TxPending:
		reason := tx.LastReason("Unknown")
		_ = r.Store.AddNote(ctx, order.ID, "Payment Attempt Failed. Please Try Again.", false)
		_ = r.Store.AddNote(ctx, order.ID, fmt.Sprintf("Customer Payment Attempt failed. Advise customer to try again with a different Payment Method. Reason: %s", reason), false)
		return OutcomePendingRetry, nil

	case tx.Status == domain.TxFailed:
		reason := tx.LastReason("Non-Given")
		if err := r.Store.SetStatus(ctx, order.ID, domain.StatusFailed); err != nil {
			return "", err
		}
		_ = r.Store.AddNote(ctx, order.ID, "Payment Attempt Failed. Try Again.", false)
		_ = r.Store.AddNote(ctx, order.ID, fmt.Sprintf("Payment Failed. Reason: %s", reason), false)
		return OutcomeFailed, nil

	case !tx.Truthy():
		return OutcomeIgnored, nil

	case tx.Currency != order.Currency || !r.amountsEqual(tx.RequestedAmount, order.Total):
		if err := r.Store.SetStatus(ctx, order.ID, domain.StatusOnHold); err != nil {
			return "", err
		}
		_ = r.Store.AddNote(ctx, order.ID, "Thank you for your order. Your payment successfully went through, but we have to put your order on-hold because we couldn't verify your order. Please, contact us for information regarding this order.", true)
		_ = r.Store.AddNote(ctx, order.ID, fmt.Sprintf(
			"Attention: New order has been placed on hold because of incorrect payment amount or currency. Amount paid: %s %.2f. Order amount: %s %.2f. Reference: %s",
			tx.Currency, tx.RequestedAmount, order.Currency, order.Total, tx.Reference), false)
		return OutcomeOnHold, nil

	default:
		if err := r.Store.MarkPaymentComplete(ctx, order.ID); err != nil {
			return "", err
		}
		if r.Settings.AutocompleteOrder {
			if err := r.Store.SetStatus(ctx, order.ID, domain.StatusCompleted); err != nil {
				return "", err
			}
		}
		_ = r.Store.AddNote(ctx, order.ID, "Payment was successful on Vida", false)
		_ = r.Store.AddNote(ctx, order.ID, "Vida reference: "+ref, false)
		_ = r.Store.AddNote(ctx, order.ID, "Thank you for your order. Your payment was successful, we are now processing your order.", true)
		return OutcomeCompleted, nil
	}
}

// applyTimeout handles exhausted verification: outcome unknown, so the
// order goes on hold for manual escalation. Never failed, never
// cancelled, never payment-complete.
func (r *Reconciler) applyTimeout(ctx context.Context, order *domain.Order, ref string) (Outcome, error) {
	if err := r.Store.SetStatus(ctx, order.ID, domain.StatusOnHold); err != nil {
		return "", err
	}
	_ = r.Store.AddNote(ctx, order.ID, "The payment didn't return a valid response. It could have timed out or been abandoned by the customer on Vida.", false)
	_ = r.Store.AddNote(ctx, order.ID, "Thank you for your order. We had an issue confirming your payment, but we have put your order on-hold. Please, contact us for information regarding this order.", true)
	_ = r.Store.AddNote(ctx, order.ID, "Attention: New order has been placed on hold because we could not get a definite response from the payment gateway. Kindly contact the Vida support team at developers@vidaveend.com to confirm the payment. Payment Reference: "+ref, false)
	if r.Log != nil {
		r.Log.Error("failed to verify transaction after multiple attempts", "reference", ref, "order_id", order.ID)
	}
	return OutcomeTimeoutOnHold, nil
}

// amountsEqual compares with an absolute epsilon so insignificant decimal
// places are ignored: 100.00 equals 100.0001.
func (r *Reconciler) amountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= r.Settings.AmountEpsilon
}

func (r *Reconciler) report(ctx context.Context, order *domain.Order, ref, trigger string, outcome Outcome) {
	r.record(trigger, outcome)
	if r.Events == nil {
		return
	}
	evt := AuditEvent{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		Reference:   ref,
		Trigger:     trigger,
		Outcome:     outcome,
		PriorStatus: order.Status,
		At:          time.Now().UTC(),
	}
	if err := r.Events.Publish(ctx, evt); err != nil && r.Log != nil {
		r.Log.Error("publish reconciliation event", "reference", ref, "err", err)
	}
}

func (r *Reconciler) record(trigger string, outcome Outcome) {
	if r.Metrics != nil {
		r.Metrics.ReconcileOutcome(trigger, string(outcome))
	}
}

// lockOrder serializes reconciliation per order id so the return-flow and
// webhook triggers cannot race each other onto the same order. Entries
// are refcounted and evicted once the last holder unlocks, so the map
// only holds orders with a reconciliation in flight.
func (r *Reconciler) lockOrder(id int64) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &orderLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()
	l.Lock()
	return func() {
		l.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}
