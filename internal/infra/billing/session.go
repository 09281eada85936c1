package billing

import (
	"context"
	"sync"

	"github.com/shamar-morrison/show-seek-sub001/internal/domain/model"
)

// Session is one restore's view of the billing connection over the purchase
// history the device uploaded. EndConnection is safe to call more than once.
type Session struct {
	conn    *Connection
	history []model.PurchaseRecord

	mu       sync.Mutex
	acquired bool
}

func NewSession(conn *Connection, history []model.PurchaseRecord) *Session {
	copied := make([]model.PurchaseRecord, len(history))
	copy(copied, history)
	return &Session{conn: conn, history: copied}
}

func (s *Session) InitConnection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquired {
		return nil
	}
	if s.conn != nil {
		if err := s.conn.Acquire(ctx); err != nil {
			return err
		}
	}
	s.acquired = true
	return nil
}

func (s *Session) EndConnection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return nil
	}
	s.acquired = false
	if s.conn == nil {
		return nil
	}
	return s.conn.Release(ctx)
}

func (s *Session) GetAvailablePurchases(context.Context) ([]model.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return nil, ErrNotConnected
	}
	out := make([]model.PurchaseRecord, len(s.history))
	copy(out, s.history)
	return out, nil
}
