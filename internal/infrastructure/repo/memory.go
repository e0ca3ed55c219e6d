package repo

import (
	"context"
	"sync"
	"time"

	"bnpl-gateway/internal/domain"
)

// MemoryOrderStore backs development and tests. Orders are seeded with
// Put; the store copies on read so callers cannot mutate shared state.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[int64]*domain.Order)}
}

func (s *MemoryOrderStore) Put(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	if cp.Meta == nil {
		cp.Meta = map[string]string{}
	}
	s.orders[o.ID] = &cp
}

func (s *MemoryOrderStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	cp.Notes = append([]domain.Note(nil), o.Notes...)
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	cp.Meta = make(map[string]string, len(o.Meta))
	for k, v := range o.Meta {
		cp.Meta[k] = v
	}
	return &cp, nil
}

func (s *MemoryOrderStore) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryOrderStore) AddNote(ctx context.Context, id int64, text string, customerVisible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Notes = append(o.Notes, domain.Note{Text: text, CustomerVisible: customerVisible, CreatedAt: time.Now().UTC()})
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaymentComplete records payment and advances unpaid statuses to
// processing, matching the platform's payment-complete semantics. A
// second call is a no-op.
func (s *MemoryOrderStore) MarkPaymentComplete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.PaymentComplete {
		return nil
	}
	o.PaymentComplete = true
	switch o.Status {
	case domain.StatusPending, domain.StatusOnHold, domain.StatusFailed, domain.StatusCancelled:
		o.Status = domain.StatusProcessing
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryOrderStore) SetMeta(ctx context.Context, id int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Meta == nil {
		o.Meta = map[string]string{}
	}
	o.Meta[key] = value
	o.UpdatedAt = time.Now().UTC()
	return nil
}
