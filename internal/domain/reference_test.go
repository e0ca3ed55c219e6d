package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseReference(t *testing.T) {
	id, err := ParseReference("WOO_482_1700000000")
	if err != nil {
		t.Fatalf("ParseReference error: %v", err)
	}
	if id != 482 {
		t.Fatalf("expected order id 482, got %d", id)
	}
}

func TestParseReferenceRejectsMalformed(t *testing.T) {
	cases := []string{
		"482_1700000000",
		"FLW_482_1700000000",
		"WOO_abc_1700000000",
		"WOO_482",
		"WOO_-5_1700000000",
		"",
	}
	for _, ref := range cases {
		if _, err := ParseReference(ref); !errors.Is(err, ErrMalformedReference) {
			t.Errorf("ParseReference(%q): expected ErrMalformedReference, got %v", ref, err)
		}
	}
}

func TestNewReferenceRoundTrip(t *testing.T) {
	ref := NewReference(91, time.Unix(1700000000, 0))
	if ref != "WOO_91_1700000000" {
		t.Fatalf("unexpected reference %q", ref)
	}
	id, err := ParseReference(ref)
	if err != nil || id != 91 {
		t.Fatalf("round trip failed: id=%d err=%v", id, err)
	}
}
