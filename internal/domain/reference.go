package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReferencePrefix marks transaction references minted by this gateway.
// Incoming references without it belong to some other integration.
const ReferencePrefix = "WOO_"

var ErrMalformedReference = errors.New("malformed transaction reference")

// NewReference mints a reference of the form WOO_<order_id>_<unix_ts>.
// A retried payment gets a fresh reference; old ones stay resolvable
// because the order id segment never changes.
func NewReference(orderID int64, now time.Time) string {
	return fmt.Sprintf("%s%d_%d", ReferencePrefix, orderID, now.Unix())
}

// ParseReference extracts the order id from a gateway reference.
func ParseReference(ref string) (int64, error) {
	if !strings.HasPrefix(ref, ReferencePrefix) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	parts := strings.Split(ref, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReference, ref)
	}
	return id, nil
}
