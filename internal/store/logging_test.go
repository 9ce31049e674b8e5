package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"graphd/internal/auditctx"
	"graphd/internal/model"
)

func TestLoggedGraphTracesCalls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db := setupTestDB(t)
	repo := NewLoggedGraph(NewGraphRepository(db), zap.New(core))

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{UserID: "bob", RequestID: "req-1"})
	ok, err := repo.InsertNode(ctx, mustNode(t, "a", nil))
	require.NoError(t, err)
	assert.True(t, ok)

	entries := logs.FilterMessage("insert node").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "repository", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a", fields["id"])
	assert.Equal(t, "bob", fields["user"])
	assert.Equal(t, "req-1", fields["request_id"])

	_, err = repo.InsertEdge(ctx, mustEdge(t, "a", "a"))
	require.Error(t, err)
	failures := logs.FilterMessage("Repository call failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Equal(t, "insert edge", failures[0].ContextMap()["operation"])
}

func TestLoggedGraphPassesResultsThrough(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	db := setupTestDB(t)
	inner := NewGraphRepository(db)
	insertNodes(t, inner, "a", "b")
	repo := NewLoggedGraph(inner, zap.New(core))

	n, err := repo.GetNode(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "a", n.ID)

	n, err = repo.GetNode(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Nil(t, n)

	assert.Zero(t, logs.Len(), "debug traces are filtered at info level")
}

func TestLoggedStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db := setupTestDB(t)
	insertNodes(t, NewGraphRepository(db), "n1")
	repo := NewLoggedStatus(NewStatusRepository(db), zap.New(core))

	require.NoError(t, repo.SetNodeStatus(context.Background(), "n1", model.StatusHealthy))
	st, err := repo.GetNodeStatus(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusHealthy, st)

	set := logs.FilterMessage("set node status").All()
	require.Len(t, set, 1)
	assert.Equal(t, "healthy", set[0].ContextMap()["status"])
	assert.Equal(t, auditctx.Anonymous, set[0].ContextMap()["user"])
}

func TestNewLoggedGraphAcceptsNilLogger(t *testing.T) {
	repo := NewLoggedGraph(NewGraphRepository(setupTestDB(t)), nil)
	_, err := repo.GetNodes(context.Background())
	assert.NoError(t, err)
}
