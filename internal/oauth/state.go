package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/affilync/bigcommerce-bridge/internal/domain"
)

// DefaultStateTTL bounds how long an authorization redirect may stay pending.
const DefaultStateTTL = 10 * time.Minute

// StateStore issues and consumes single-use CSRF states for the OAuth
// install flow. Consume must invalidate the state so a replayed callback
// fails.
type StateStore interface {
	Issue(ctx context.Context, ttl time.Duration) (string, error)
	Consume(ctx context.Context, state string) error
}

// NewState returns a random URL-safe state token.
func NewState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PGStateStore keeps pending states in PostgreSQL so the flow survives
// restarts and works across replicas.
type PGStateStore struct {
	db DB
}

func NewPGStateStore(db DB) *PGStateStore {
	return &PGStateStore{db: db}
}

func (s *PGStateStore) Issue(ctx context.Context, ttl time.Duration) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO oauth_states (state, expires_at)
		VALUES ($1, $2)
		RETURNING state
	`

	var stored string
	if err := s.db.QueryRow(ctx, query, state, time.Now().Add(ttl).UTC()).Scan(&stored); err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}
	return stored, nil
}

func (s *PGStateStore) Consume(ctx context.Context, state string) error {
	query := `
		DELETE FROM oauth_states
		WHERE state = $1
		RETURNING expires_at
	`

	var expiresAt time.Time
	err := s.db.QueryRow(ctx, query, state).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrInvalidOAuthState
	}
	if err != nil {
		return fmt.Errorf("consume oauth state: %w", err)
	}

	if time.Now().After(expiresAt) {
		return domain.ErrInvalidOAuthState
	}
	return nil
}

// MemoryStateStore keeps pending states in process memory. Suitable for a
// single instance only; states do not survive a restart and are invisible to
// other replicas.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

func (s *MemoryStateStore) Issue(_ context.Context, ttl time.Duration) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.states[state] = time.Now().Add(ttl)
	return state, nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	if !ok {
		return domain.ErrInvalidOAuthState
	}
	delete(s.states, state)

	if time.Now().After(expiresAt) {
		return domain.ErrInvalidOAuthState
	}
	return nil
}

func (s *MemoryStateStore) prune() {
	now := time.Now()
	for state, expiresAt := range s.states {
		if now.After(expiresAt) {
			delete(s.states, state)
		}
	}
}
