package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/gemini-relay/internal/history"
	"github.com/RichardoC/gemini-relay/internal/models"
)

func newTestDB(t *testing.T, exchanges int) *Database {
	t.Helper()
	database, err := New(MemoryDSN, exchanges)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestDatabase_AppendGetClear(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t, 10)

	require.NoError(t, database.Append(ctx, 1, models.RoleUser, "hello"))
	require.NoError(t, database.Append(ctx, 1, models.RoleAssistant, "hi there"))
	require.NoError(t, database.Append(ctx, 2, models.RoleUser, "someone else"))

	turns, err := database.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, models.Turn{Role: models.RoleUser, Text: "hello", CreatedAt: turns[0].CreatedAt}, turns[0])
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.False(t, turns[0].CreatedAt.IsZero())

	require.NoError(t, database.Clear(ctx, 1))
	turns, err = database.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, turns)

	other, err := database.Get(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestDatabase_EvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t, 10)

	for i := 0; i < 25; i++ {
		require.NoError(t, database.Append(ctx, 5, models.RoleUser, fmt.Sprintf("q%d", i)))
		require.NoError(t, database.Append(ctx, 5, models.RoleAssistant, fmt.Sprintf("a%d", i)))
	}

	turns, err := database.Get(ctx, 5)
	require.NoError(t, err)
	require.Len(t, turns, 20)
	assert.Equal(t, "q15", turns[0].Text)
	assert.Equal(t, "a24", turns[19].Text)
}

func TestDatabase_RejectsEmptyText(t *testing.T) {
	database := newTestDB(t, 10)
	err := database.Append(context.Background(), 1, models.RoleUser, "")
	assert.ErrorIs(t, err, history.ErrInvalidArgument)
}

func TestDatabase_SeparateInstancesDoNotShareState(t *testing.T) {
	ctx := context.Background()
	first := newTestDB(t, 10)
	second := newTestDB(t, 10)

	require.NoError(t, first.Append(ctx, 1, models.RoleUser, "only in first"))

	turns, err := second.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
