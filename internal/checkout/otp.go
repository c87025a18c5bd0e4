package checkout

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultChallengeTTL = 10 * time.Minute
	codeDigits          = 6
)

// Challenge is a pending phone verification. Only the code's hash is kept.
type Challenge struct {
	Phone    string `json:"phone"`
	CodeHash []byte `json:"code_hash"`
}

// ChallengeStore keeps challenges until they expire. Get returns
// ErrChallengeNotFound for unknown or expired ids.
type ChallengeStore interface {
	Put(ctx context.Context, id string, c Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (Challenge, error)
}

// Sender delivers a code to a phone.
type Sender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// CodeProvider implements Provider with one-time numeric codes.
type CodeProvider struct {
	store  ChallengeStore
	sender Sender
	ttl    time.Duration

	// cost is the bcrypt cost for code hashes; lowered in tests.
	cost    int
	newCode func() (string, error)
}

// NewCodeProvider creates a CodeProvider. A non-positive ttl uses DefaultChallengeTTL.
func NewCodeProvider(store ChallengeStore, sender Sender, ttl time.Duration) *CodeProvider {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &CodeProvider{
		store:   store,
		sender:  sender,
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		newCode: randomCode,
	}
}

func (p *CodeProvider) SendChallenge(ctx context.Context, phone string) (string, error) {
	code, err := p.newCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	id := uuid.NewString()
	if err := p.store.Put(ctx, id, Challenge{Phone: phone, CodeHash: hash}, p.ttl); err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}
	if err := p.sender.SendCode(ctx, phone, code); err != nil {
		return "", fmt.Errorf("send code: %w", err)
	}
	return id, nil
}

func (p *CodeProvider) VerifyChallenge(ctx context.Context, id, code string) (bool, error) {
	c, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load challenge: %w", err)
	}
	return bcrypt.CompareHashAndPassword(c.CodeHash, []byte(code)) == nil, nil
}

// randomCode returns a zero-padded decimal code from crypto/rand.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// MemoryChallengeStore is a ChallengeStore for a single process.
type MemoryChallengeStore struct {
	now func() time.Time

	mu         sync.Mutex
	challenges map[string]memoryChallenge
}

type memoryChallenge struct {
	Challenge
	expiresAt time.Time
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{now: time.Now, challenges: make(map[string]memoryChallenge)}
}

func (m *MemoryChallengeStore) Put(ctx context.Context, id string, c Challenge, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range m.challenges {
		if now.After(v.expiresAt) {
			delete(m.challenges, k)
		}
	}
	m.challenges[id] = memoryChallenge{Challenge: c, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryChallengeStore) Get(ctx context.Context, id string) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok || m.now().After(c.expiresAt) {
		return Challenge{}, ErrChallengeNotFound
	}
	return c.Challenge, nil
}
