package usecase

import (
	"testing"
	"time"
)

func TestNonceIssueAndVerify(t *testing.T) {
	s := NewNonceService("test-secret", 10*time.Minute)
	token, err := s.Issue(482)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if err := s.Verify(token, 482); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestNonceRejectsWrongOrder(t *testing.T) {
	s := NewNonceService("test-secret", 10*time.Minute)
	token, _ := s.Issue(482)
	if err := s.Verify(token, 483); err == nil {
		t.Fatal("token bound to order 482 must not verify for 483")
	}
}

func TestNonceRejectsExpired(t *testing.T) {
	s := NewNonceService("test-secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	token, _ := s.Issue(482)
	if err := s.Verify(token, 482); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestNonceRejectsGarbageAndWrongKey(t *testing.T) {
	s := NewNonceService("test-secret", time.Minute)
	if err := s.Verify("not-a-token", 482); err == nil {
		t.Fatal("garbage token must not verify")
	}
	other := NewNonceService("other-secret", time.Minute)
	token, _ := other.Issue(482)
	if err := s.Verify(token, 482); err == nil {
		t.Fatal("token signed with another key must not verify")
	}
}
