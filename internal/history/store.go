// Package history keeps the recent conversation turns for each user.
package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/RichardoC/gemini-relay/internal/models"
)

// DefaultExchanges is the number of user/assistant exchanges remembered per user.
const DefaultExchanges = 10

// ErrInvalidArgument reports a turn with an unknown role or empty text.
var ErrInvalidArgument = errors.New("invalid argument")

// Store owns every user's conversation history. Implementations serialize
// Append, Get and Clear per user; different users never block each other.
type Store interface {
	Append(ctx context.Context, userID int64, role models.Role, text string) error
	Get(ctx context.Context, userID int64) ([]models.Turn, error)
	Clear(ctx context.Context, userID int64) error
}

// Capacity returns the maximum number of turns kept for K exchanges.
func Capacity(exchanges int) int {
	if exchanges <= 0 {
		exchanges = DefaultExchanges
	}
	return 2 * exchanges
}

// Validate rejects turns that can never be stored.
func Validate(role models.Role, text string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty %s text", ErrInvalidArgument, role)
	}
	return nil
}

type conversation struct {
	mu    sync.Mutex
	turns []models.Turn
}

// MemoryStore is the in-process Store. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]*conversation
	limit int
	now   func() time.Time
}

func NewMemoryStore(exchanges int) *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*conversation),
		limit: Capacity(exchanges),
		now:   time.Now,
	}
}

// Limit is the per-user turn cap (2K).
func (s *MemoryStore) Limit() int {
	return s.limit
}

func (s *MemoryStore) conversation(userID int64, create bool) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.users[userID]
	if !ok && create {
		c = &conversation{}
		s.users[userID] = c
	}
	return c
}

func (s *MemoryStore) Append(_ context.Context, userID int64, role models.Role, text string) error {
	if err := Validate(role, text); err != nil {
		return err
	}

	c := s.conversation(userID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, models.Turn{Role: role, Text: text, CreatedAt: s.now()})
	if n := len(c.turns); n > s.limit {
		// FIFO eviction; clone so the dropped prefix can be collected.
		c.turns = slices.Clone(c.turns[n-s.limit:])
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, userID int64) ([]models.Turn, error) {
	c := s.conversation(userID, false)
	if c == nil {
		return []models.Turn{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Turn{}, c.turns...), nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	c := s.conversation(userID, false)
	if c == nil {
		return nil
	}

	c.mu.Lock()
	c.turns = nil
	c.mu.Unlock()
	return nil
}
