package vida

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bnpl-gateway/internal/domain"
)

const statusBody = `{
	"data": {
		"status": "successful",
		"requested_amount": "100.00",
		"currency": "NGN",
		"reference": "WOO_482_1700000000"
	},
	"log": {
		"history": [
			{"message": "{\"error\":{\"explanation\":\"first attempt declined\"}}"}
		]
	}
}`

func testClient(t *testing.T, srvURL string) (*Client, *[]time.Duration) {
	t.Helper()
	slept := []time.Duration{}
	c := New(srvURL, 3, 2*time.Second)
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestVerifyDecodesResponse(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(statusBody))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	tx, err := c.Verify(context.Background(), "WOO_482_1700000000", "sk_test")
	require.NoError(t, err)
	require.Equal(t, "/bnplrequests/WOO_482_1700000000/status", gotPath)
	require.Equal(t, "Bearer sk_test", gotAuth)
	require.Equal(t, domain.TxSuccessful, tx.Status)
	require.Equal(t, 100.00, tx.RequestedAmount)
	require.Equal(t, "NGN", tx.Currency)
	require.Equal(t, "WOO_482_1700000000", tx.Reference)
	require.Len(t, tx.History, 1)
}

func TestVerifyLegacyPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(statusBody))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.VerifyLegacy(context.Background(), "WOO_482_1700000000", "sk_test")
	require.NoError(t, err)
	require.Equal(t, "/transaction/verify/:WOO_482_1700000000", gotPath)
}

func TestVerifyNumericAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"status":"pending","requested_amount":250.5,"currency":"NGN","reference":"WOO_1_2"}}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	tx, err := c.Verify(context.Background(), "WOO_1_2", "sk_test")
	require.NoError(t, err)
	require.Equal(t, domain.TxPending, tx.Status)
	require.Equal(t, 250.5, tx.RequestedAmount)
}

func TestVerifyNon200WithStatusBodyIsTerminal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"data":{"status":"failed","requested_amount":"100.00","currency":"NGN","reference":"WOO_482_1700000000"}}`))
	}))
	defer srv.Close()

	c, slept := testClient(t, srv.URL)
	tx, err := c.Verify(context.Background(), "WOO_482_1700000000", "sk_test")
	require.NoError(t, err)
	require.Equal(t, domain.TxFailed, tx.Status)
	require.Equal(t, 1, attempts)
	require.Empty(t, *slept)
}

func TestVerifyRetriesNon200WithoutStatusBody(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"upstream unavailable"}`))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.Verify(context.Background(), "WOO_482_1700000000", "sk_test")
	require.ErrorIs(t, err, domain.ErrVerificationTimeout)
	require.Equal(t, 3, attempts)
}

func TestVerifyRetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(statusBody))
	}))
	defer srv.Close()

	c, slept := testClient(t, srv.URL)
	tx, err := c.Verify(context.Background(), "WOO_482_1700000000", "sk_test")
	require.NoError(t, err)
	require.Equal(t, domain.TxSuccessful, tx.Status)
	require.Equal(t, 3, attempts)
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *slept)
}

func TestVerifyTimeoutAfterExhaustion(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, slept := testClient(t, srv.URL)
	_, err := c.Verify(context.Background(), "WOO_482_1700000000", "sk_test")
	require.ErrorIs(t, err, domain.ErrVerificationTimeout)
	require.Equal(t, 3, attempts)
	for _, d := range *slept {
		require.GreaterOrEqual(t, d, 2*time.Second)
	}
	require.Len(t, *slept, 2)
}

func TestVerifyRetriesUndecodableBody(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL)
	_, err := c.Verify(context.Background(), "WOO_482_1700000000", "sk_test")
	require.ErrorIs(t, err, domain.ErrVerificationTimeout)
	require.Equal(t, 3, attempts)
}

func TestVerifyStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c, _ := testClient(t, srv.URL)
	c.sleep = func(time.Duration) { cancel() }

	_, err := c.Verify(ctx, "WOO_482_1700000000", "sk_test")
	require.ErrorIs(t, err, context.Canceled)
}
