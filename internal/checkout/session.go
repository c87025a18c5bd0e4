package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/menucraft/api/internal/database"
)

// DefaultSessionTTL is how long an untouched checkout session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Session is one customer's pass through the two-step checkout.
type Session struct {
	ID              string
	TenantID        string
	State           string
	Phone           string
	VerificationIDs []string
	FailedAttempts  int
	VerifiedPhone   string
	Prefill         *database.Customer
	Cart            *Cart
	LastError       string
	Order           *database.Order
	UpdatedAt       time.Time

	// mu serializes flow operations on this session.
	mu sync.Mutex
}

// SessionStore keeps sessions in memory until they expire.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a store. A non-positive ttl uses DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (s *SessionStore) create(tenantID string, cart *Cart, state string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		State:     state,
		Cart:      cart,
		UpdatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// get returns a live session of the tenant and refreshes its expiry.
func (s *SessionStore) get(tenantID, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.TenantID != tenantID {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if now.Sub(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	sess.UpdatedAt = now
	return sess, nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len is the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
