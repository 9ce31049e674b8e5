package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"graphd/internal/model"
)

// steppingClock returns a clock that advances one millisecond per call, so
// created_at values are distinct and ordered.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

// setupTestDB opens a private in-memory database with the full schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:", 0, WithClock(steppingClock()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustNode(t *testing.T, id string, data map[string]any) model.Node {
	t.Helper()
	n, err := model.NewNode(id, "Node "+id, "application", "service", data)
	require.NoError(t, err)
	return n
}

func mustEdge(t *testing.T, source, target string) model.Edge {
	t.Helper()
	e, err := model.NewEdge(source, target, "", nil)
	require.NoError(t, err)
	return e
}

func insertNodes(t *testing.T, repo GraphRepository, ids ...string) {
	t.Helper()
	for _, id := range ids {
		ok, err := repo.InsertNode(context.Background(), mustNode(t, id, nil))
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func countRows(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func ids(nodes []model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
