package vida

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bnpl-gateway/internal/domain"
)

// Client performs authenticated status checks against the Vida API.
// Transient failures (network errors, undecodable bodies) are retried up
// to MaxAttempts with a fixed Backoff between attempts. Any response
// carrying a decodable status body is terminal whatever the HTTP code:
// the API reports application errors as non-200 with a status payload,
// and those are an answer, not an outage.
type Client struct {
	BaseURL     string
	HTTP        *http.Client
	MaxAttempts int
	Backoff     time.Duration

	sleep func(time.Duration)
}

func New(baseURL string, maxAttempts int, backoff time.Duration) *Client {
	return &Client{
		BaseURL:     baseURL,
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		sleep:       time.Sleep,
	}
}

// Verify checks a reference against the current status endpoint.
func (c *Client) Verify(ctx context.Context, ref, secret string) (domain.RemoteTransaction, error) {
	return c.verify(ctx, c.base()+"/bnplrequests/"+ref+"/status", ref, secret)
}

// VerifyLegacy checks a reference against the older transaction-verify
// path, which webhook deliveries are still reconciled through.
func (c *Client) VerifyLegacy(ctx context.Context, ref, secret string) (domain.RemoteTransaction, error) {
	return c.verify(ctx, c.base()+"/transaction/verify/:"+ref, ref, secret)
}

func (c *Client) verify(ctx context.Context, url, ref, secret string) (domain.RemoteTransaction, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	pause := c.sleep
	if pause == nil {
		pause = time.Sleep
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			pause(c.Backoff)
		}
		tx, err := c.fetch(ctx, url, secret)
		if err == nil {
			return tx, nil
		}
		if ctx.Err() != nil {
			return domain.RemoteTransaction{}, ctx.Err()
		}
	}
	return domain.RemoteTransaction{}, fmt.Errorf("verify %s: %w", ref, domain.ErrVerificationTimeout)
}

func (c *Client) fetch(ctx context.Context, url, secret string) (domain.RemoteTransaction, error) {
	var zero domain.RemoteTransaction
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+secret)
	resp, err := hc.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, err
	}
	var out statusResponse
	decodeErr := json.Unmarshal(body, &out)
	if resp.StatusCode != http.StatusOK {
		if decodeErr != nil || out.Data.Status == "" {
			return zero, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
	} else if decodeErr != nil {
		return zero, decodeErr
	}
	return domain.RemoteTransaction{
		Status:          domain.ParseTxStatus(out.Data.Status),
		RawStatus:       out.Data.Status,
		RequestedAmount: float64(out.Data.RequestedAmount),
		Currency:        out.Data.Currency,
		Reference:       out.Data.Reference,
		History:         out.Log.History,
	}, nil
}

func (c *Client) base() string {
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

type statusResponse struct {
	Data struct {
		Status          string    `json:"status"`
		RequestedAmount flexFloat `json:"requested_amount"`
		Currency        string    `json:"currency"`
		Reference       string    `json:"reference"`
	} `json:"data"`
	Log struct {
		History []domain.HistoryEntry `json:"history"`
	} `json:"log"`
}

// flexFloat tolerates the amount arriving as a number or a numeric
// string, both of which the processor has been seen to send.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
