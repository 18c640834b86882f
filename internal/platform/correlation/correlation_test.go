package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewHandler(inner))
}

func TestWithConnID_Roundtrip(t *testing.T) {
	ctx := WithConnID(context.Background(), "abc12345")
	id, ok := ConnID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)
}

func TestConnID_Missing(t *testing.T) {
	id, ok := ConnID(context.Background())
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestConnID_EmptyString(t *testing.T) {
	id, ok := ConnID(WithConnID(context.Background(), ""))
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestHandler_AddsConnID(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := WithConnID(context.Background(), "test1234")
	logger.InfoContext(ctx, "test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "conn_id=test1234")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "test message")
}

func TestHandler_NoConnID_WhenMissing(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf).InfoContext(context.Background(), "no connection")

	assert.NotContains(t, buf.String(), "conn_id")
}

func TestHandler_ExplicitConnIDNotDuplicated(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := WithConnID(context.Background(), "ctx-id")
	logger.InfoContext(ctx, "explicit", "conn_id", "attr-id")

	output := buf.String()
	assert.Equal(t, 1, strings.Count(output, "conn_id="))
	assert.Contains(t, output, "conn_id=attr-id")
}

func TestHandler_WithAttrs_PreservesConnID(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("component", "sweeper")

	ctx := WithConnID(context.Background(), "attr1234")
	logger.InfoContext(ctx, "with attrs")

	output := buf.String()
	assert.Contains(t, output, "conn_id=attr1234")
	assert.Contains(t, output, "component=sweeper")
}
