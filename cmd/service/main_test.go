package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/request-scope-service/internal/platform/config"
	"github.com/jsamuelsen/request-scope-service/internal/platform/logging"
)

func TestNewLogger_InstallsContextFallback(t *testing.T) {
	original := logging.FromContext(context.Background())
	t.Cleanup(func() { logging.SetDefault(original) })

	cfg := &config.Config{
		App: config.AppConfig{Name: "request-scope-service", Version: "1.0.0", Environment: "test"},
		Log: config.LogConfig{Level: "warn", Format: "pretty"},
	}

	var buf bytes.Buffer

	logger := newLogger(cfg, &buf)
	require.Same(t, logger, logging.FromContext(context.Background()))
	assert.Same(t, logger, slog.Default())

	ctx := logging.WithUnit(context.Background(), logging.Unit{ScopeID: "scope-1", SessionID: "sess-secret"})
	logging.FromContext(ctx).InfoContext(ctx, "below configured level")
	logging.FromContext(ctx).WarnContext(ctx, "unit of work slow")

	out := buf.String()
	assert.NotContains(t, out, "below configured level")
	assert.Contains(t, out, "unit of work slow")
	assert.NotContains(t, out, "sess-secret")
}
