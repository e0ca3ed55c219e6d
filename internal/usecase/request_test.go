package usecase

import (
	"context"
	"testing"
	"time"

	"bnpl-gateway/internal/domain"
)

func TestBuildPersistsReference(t *testing.T) {
	store := newFakeStore(domain.StatusPending)
	store.order.BillingPhone = "+2348012345678"
	store.order.Items = []domain.OrderItem{{Name: "Widget", UnitPrice: 100.00, Quantity: 1}}
	b := NewRequestBuilder(store, BuilderSettings{
		Test: Credentials{ClientID: "ck_test", ClientSecret: "sk_test"},
		Live: Credentials{ClientID: "ck_live", ClientSecret: "sk_live"},
	})
	b.now = func() time.Time { return time.Unix(1700000000, 0) }

	args, err := b.Build(context.Background(), store.order, "https://shop.example/gateway/vida/return?order_id=482")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if args.TxRef != "WOO_482_1700000000" {
		t.Fatalf("unexpected tx_ref %q", args.TxRef)
	}
	if store.order.Meta[MetaTxnRef] != args.TxRef {
		t.Fatalf("reference not persisted: meta=%q", store.order.Meta[MetaTxnRef])
	}
	if args.Environment != "sandbox" || args.ClientID != "ck_test" || args.ClientSecret != "sk_test" {
		t.Fatalf("expected sandbox credentials, got %+v", args)
	}
	if args.Amount != 100.00 || args.Currency != "NGN" {
		t.Fatalf("amount/currency not taken from order: %+v", args)
	}
	if args.PhoneNumber != "+2348012345678" {
		t.Fatalf("phone not taken from order: %q", args.PhoneNumber)
	}
	if len(args.Items) != 1 || args.Items[0].Name != "Widget" {
		t.Fatalf("items not taken from order: %+v", args.Items)
	}
}

func TestBuildSelectsLiveCredentials(t *testing.T) {
	store := newFakeStore(domain.StatusPending)
	b := NewRequestBuilder(store, BuilderSettings{
		Test:   Credentials{ClientID: "ck_test", ClientSecret: "sk_test"},
		Live:   Credentials{ClientID: "ck_live", ClientSecret: "sk_live"},
		GoLive: true,
	})

	args, err := b.Build(context.Background(), store.order, "https://shop.example/return")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if args.Environment != "production" || args.ClientID != "ck_live" || args.ClientSecret != "sk_live" {
		t.Fatalf("expected live credentials, got %+v", args)
	}
}

func TestRetryMintsFreshReference(t *testing.T) {
	store := newFakeStore(domain.StatusPending)
	b := NewRequestBuilder(store, BuilderSettings{})
	ts := int64(1700000000)
	b.now = func() time.Time { ts++; return time.Unix(ts, 0) }

	first, err := b.Build(context.Background(), store.order, "https://shop.example/return")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	second, err := b.Build(context.Background(), store.order, "https://shop.example/return")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if first.TxRef == second.TxRef {
		t.Fatalf("retry must mint a fresh reference, both %q", first.TxRef)
	}
	// The stale reference still resolves to the same order.
	for _, ref := range []string{first.TxRef, second.TxRef} {
		id, err := domain.ParseReference(ref)
		if err != nil || id != store.order.ID {
			t.Fatalf("reference %q does not resolve to order %d", ref, store.order.ID)
		}
	}
	if store.order.Meta[MetaTxnRef] != second.TxRef {
		t.Fatal("meta must hold the newest reference")
	}
}
