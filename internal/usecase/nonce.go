package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidNonce = errors.New("invalid or expired nonce")

// NonceService issues and verifies the one-time anti-forgery token the
// return-flow handler requires. The token is a short-lived HS256 JWT
// bound to the order id.
type NonceService struct {
	Secret string
	TTL    time.Duration

	now func() time.Time
}

func NewNonceService(secret string, ttl time.Duration) *NonceService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &NonceService{Secret: secret, TTL: ttl, now: time.Now}
}

func (s *NonceService) Issue(orderID int64) (string, error) {
	now := s.now
	if now == nil {
		now = time.Now
	}
	claims := jwt.MapClaims{
		"order_id": orderID,
		"jti":      uuid.NewString(),
		"exp":      now().Add(s.TTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.Secret))
}

// Verify checks the token signature, expiry and order binding.
func (s *NonceService) Verify(token string, orderID int64) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidNonce
		}
		return []byte(s.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidNonce
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidNonce
	}
	id, ok := claims["order_id"].(float64)
	if !ok || int64(id) != orderID {
		return ErrInvalidNonce
	}
	return nil
}
