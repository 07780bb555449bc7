package history

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/RichardoC/gemini-relay/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryStore_AppendAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	require.NoError(t, s.Append(ctx, 1, models.RoleUser, "hello"))
	require.NoError(t, s.Append(ctx, 1, models.RoleAssistant, "hi there"))

	turns, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "hi there", turns[1].Text)
}

func TestMemoryStore_GetUnknownUser(t *testing.T) {
	turns, err := NewMemoryStore(10).Get(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestMemoryStore_RejectsInvalidTurns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	tests := []struct {
		name string
		role models.Role
		text string
	}{
		{"empty text", models.RoleUser, ""},
		{"blank text", models.RoleAssistant, " \n\t"},
		{"unknown role", models.Role("tool"), "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Append(ctx, 1, tt.role, tt.text)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	turns, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryStore_EvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	for i := 0; i < 25; i++ {
		require.NoError(t, s.Append(ctx, 7, models.RoleUser, fmt.Sprintf("q%d", i)))
		require.NoError(t, s.Append(ctx, 7, models.RoleAssistant, fmt.Sprintf("a%d", i)))

		turns, err := s.Get(ctx, 7)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(turns), s.Limit())
	}

	turns, err := s.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, turns, 20)
	for i, turn := range turns {
		exchange := 15 + i/2
		if i%2 == 0 {
			assert.Equal(t, fmt.Sprintf("q%d", exchange), turn.Text)
		} else {
			assert.Equal(t, fmt.Sprintf("a%d", exchange), turn.Text)
		}
	}
}

func TestMemoryStore_OddCountKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	for i := 0; i < 7; i++ {
		require.NoError(t, s.Append(ctx, 1, models.RoleUser, fmt.Sprintf("m%d", i)))
	}

	turns, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "m3", turns[0].Text)
	assert.Equal(t, "m6", turns[3].Text)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, 1, models.RoleUser, "q"))
		require.NoError(t, s.Append(ctx, 1, models.RoleAssistant, "a"))
	}
	require.NoError(t, s.Append(ctx, 2, models.RoleUser, "other"))

	require.NoError(t, s.Clear(ctx, 1))
	require.NoError(t, s.Clear(ctx, 1))
	require.NoError(t, s.Clear(ctx, 99))

	turns, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, turns)

	other, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	require.NoError(t, s.Append(ctx, 1, models.RoleUser, "fresh"))
	turns, err = s.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "fresh", turns[0].Text)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)
	require.NoError(t, s.Append(ctx, 1, models.RoleUser, "hello"))

	turns, err := s.Get(ctx, 1)
	require.NoError(t, err)
	turns[0].Text = "mutated"

	again, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello", again[0].Text)
}

func TestMemoryStore_ConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(10)

	var wg sync.WaitGroup
	for user := int64(1); user <= 8; user++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				assert.NoError(t, s.Append(ctx, user, models.RoleUser, fmt.Sprintf("%d-%d", user, i)))
				_, err := s.Get(ctx, user)
				assert.NoError(t, err)
			}
		}(user)
	}
	wg.Wait()

	for user := int64(1); user <= 8; user++ {
		turns, err := s.Get(ctx, user)
		require.NoError(t, err)
		require.Len(t, turns, 20)
		assert.Equal(t, fmt.Sprintf("%d-80", user), turns[0].Text)
		assert.Equal(t, fmt.Sprintf("%d-99", user), turns[19].Text)
	}
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 20, Capacity(10))
	assert.Equal(t, 6, Capacity(3))
	assert.Equal(t, 2*DefaultExchanges, Capacity(0))
}
