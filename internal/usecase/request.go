package usecase

import (
	"context"
	"time"

	"bnpl-gateway/internal/domain"
)

// MetaTxnRef is the order meta key holding the most recently minted
// transaction reference for the order.
const MetaTxnRef = "_vida_txn_ref"

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type BuilderSettings struct {
	Test   Credentials
	Live   Credentials
	GoLive bool
}

// Active returns the credentials and environment tag for the configured
// mode. Live mode is selected only by the parsed go-live flag.
func (s BuilderSettings) Active() (Credentials, string) {
	if s.GoLive {
		return s.Live, "production"
	}
	return s.Test, "sandbox"
}

// PaymentArgs is the payload handed to the processor's checkout widget.
type PaymentArgs struct {
	Items        []domain.OrderItem `json:"items"`
	Amount       float64            `json:"amount"`
	TxRef        string             `json:"tx_ref"`
	Currency     string             `json:"currency"`
	ClientID     string             `json:"client_id"`
	ClientSecret string             `json:"client_secret"`
	RedirectURI  string             `json:"redirect_uri"`
	PhoneNumber  string             `json:"phone_number"`
	Environment  string             `json:"environment"`
	CheckoutURL  string             `json:"checkout_url"`
	CancelURL    string             `json:"cancel_url"`
}

// RequestBuilder assembles the outbound payment-initiation payload.
type RequestBuilder struct {
	Store    OrderStore
	Settings BuilderSettings

	now func() time.Time
}

func NewRequestBuilder(store OrderStore, settings BuilderSettings) *RequestBuilder {
	return &RequestBuilder{Store: store, Settings: settings, now: time.Now}
}

// Build mints a fresh reference for this payment attempt and persists it
// against the order before returning, so a later verification can always
// locate the order from the reference alone.
func (b *RequestBuilder) Build(ctx context.Context, order *domain.Order, redirectURL string) (PaymentArgs, error) {
	now := b.now
	if now == nil {
		now = time.Now
	}
	ref := domain.NewReference(order.ID, now())
	if err := b.Store.SetMeta(ctx, order.ID, MetaTxnRef, ref); err != nil {
		return PaymentArgs{}, err
	}
	creds, environment := b.Settings.Active()
	return PaymentArgs{
		Items:        order.Items,
		Amount:       order.Total,
		TxRef:        ref,
		Currency:     order.Currency,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  redirectURL,
		PhoneNumber:  order.BillingPhone,
		Environment:  environment,
		CheckoutURL:  order.CheckoutURL,
		CancelURL:    order.CancelURL,
	}, nil
}
