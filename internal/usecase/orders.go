package usecase

import (
	"context"

	"bnpl-gateway/internal/domain"
)

// OrderStore is the gateway's view of the hosting platform's order
// records. The gateway transitions statuses and appends notes; it never
// creates or deletes orders.
type OrderStore interface {
	Get(ctx context.Context, id int64) (*domain.Order, error)
	SetStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	AddNote(ctx context.Context, id int64, text string, customerVisible bool) error
	MarkPaymentComplete(ctx context.Context, id int64) error
	SetMeta(ctx context.Context, id int64, key, value string) error
}

// Verifier checks a transaction reference against the processor.
// Verify is the current status endpoint; VerifyLegacy is the older
// transaction-verify path still used by webhook deliveries.
type Verifier interface {
	Verify(ctx context.Context, ref, secret string) (domain.RemoteTransaction, error)
	VerifyLegacy(ctx context.Context, ref, secret string) (domain.RemoteTransaction, error)
}
