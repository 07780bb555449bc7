package main

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/RichardoC/gemini-relay/internal/config"
	"github.com/RichardoC/gemini-relay/internal/db"
	"github.com/RichardoC/gemini-relay/internal/history"
	"github.com/RichardoC/gemini-relay/internal/metrics"
	"github.com/RichardoC/gemini-relay/internal/models"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		backend string
		want    any
	}{
		{config.BackendMemory, &history.MemoryStore{}},
		{config.BackendSQLite, &db.Database{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			store, closeStore, err := newStore(config.Config{HistoryBackend: tt.backend, HistoryExchanges: 2})
			require.NoError(t, err)
			defer closeStore()
			assert.IsType(t, tt.want, store)

			ctx := context.Background()
			for i := 0; i < 6; i++ {
				require.NoError(t, store.Append(ctx, 1, models.RoleUser, "m"))
			}
			turns, err := store.Get(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, turns, 4)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestMetricsServer(t *testing.T) {
	m := metrics.New()
	m.ObserveMessage(metrics.KindChat)
	srv := newMetricsServer(":0", m)

	for path, want := range map[string]string{
		"/metrics": `relay_messages_total{kind="chat"} 1`,
		"/healthz": "ok",
	} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code, path)
		assert.Contains(t, string(body), want, path)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	flag := cmd.Flags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
}
