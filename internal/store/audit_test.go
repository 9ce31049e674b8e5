package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphd/internal/auditctx"
	"graphd/internal/model"
)

func newAuditedGraph(t *testing.T, opts ...AuditOption) (*DB, *AuditedGraph, *SQLiteAuditLog) {
	t.Helper()
	db := setupTestDB(t)
	log := NewAuditLog(db)
	opts = append([]AuditOption{WithTransactor(db)}, opts...)
	return db, NewAuditedGraph(NewGraphRepository(db), log, opts...), log
}

func actorCtx() context.Context {
	return auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID: "alice",
		Group:  model.GroupContributor,
		IP:     "9.9.9.9",
	})
}

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestAuditCompleteness(t *testing.T) {
	ctx := actorCtx()
	db, repo, log := newAuditedGraph(t)

	_, err := repo.InsertNode(ctx, mustNode(t, "a", map[string]any{"v": "1"}))
	require.NoError(t, err)
	_, err = repo.InsertNode(ctx, mustNode(t, "b", nil))
	require.NoError(t, err)

	updated := mustNode(t, "a", map[string]any{"v": "2"})
	_, err = repo.UpdateNode(ctx, updated)
	require.NoError(t, err)

	_, err = repo.InsertEdge(ctx, mustEdge(t, "a", "b"))
	require.NoError(t, err)
	e := mustEdge(t, "a", "b")
	e.Label = "uses"
	_, err = repo.UpdateEdge(ctx, e)
	require.NoError(t, err)
	_, err = repo.DeleteEdge(ctx, "a", "b")
	require.NoError(t, err)
	_, err = repo.DeleteNode(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 7, countRows(t, db, `SELECT COUNT(*) FROM audit`))

	entries, err := log.GetLogs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 7)

	want := []struct {
		et     model.EntityType
		id     string
		action model.Action
		old    bool
		new    bool
	}{
		{model.EntityNode, "b", model.ActionDelete, true, false},
		{model.EntityEdge, "a->b", model.ActionDelete, true, false},
		{model.EntityEdge, "a->b", model.ActionUpdate, true, true},
		{model.EntityEdge, "a->b", model.ActionInsert, false, true},
		{model.EntityNode, "a", model.ActionUpdate, true, true},
		{model.EntityNode, "b", model.ActionInsert, false, true},
		{model.EntityNode, "a", model.ActionInsert, false, true},
	}
	for i, w := range want {
		got := entries[i]
		assert.Equal(t, w.et, got.EntityType, "entry %d", i)
		assert.Equal(t, w.id, got.EntityID, "entry %d", i)
		assert.Equal(t, w.action, got.Action, "entry %d", i)
		assert.Equal(t, w.old, got.OldData != nil, "entry %d old_data", i)
		assert.Equal(t, w.new, got.NewData != nil, "entry %d new_data", i)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "9.9.9.9", got.IPAddress)
	}

	nodeUpdate := entries[4]
	assert.Equal(t, map[string]any{"v": "1"}, decode(t, nodeUpdate.OldData)["data"])
	assert.Equal(t, map[string]any{"v": "2"}, decode(t, nodeUpdate.NewData)["data"])
	assert.Equal(t, "uses", decode(t, entries[2].NewData)["label"])
}

func TestAuditSkipsUnsuccessfulMutations(t *testing.T) {
	ctx := actorCtx()
	db, repo, _ := newAuditedGraph(t)

	ok, err := repo.DeleteNode(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateNode(ctx, mustNode(t, "a", nil))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateEdge(ctx, mustEdge(t, "a", "b"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.InsertEdge(ctx, mustEdge(t, "a", "a"))
	require.Error(t, err)

	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM audit`))
}

func TestAuditReadsWhenEnabled(t *testing.T) {
	ctx := actorCtx()
	db, repo, log := newAuditedGraph(t, WithReadAuditing(true))
	insertNodes(t, NewGraphRepository(db), "a", "b")

	_, err := repo.GetNode(ctx, "a")
	require.NoError(t, err)
	_, err = repo.GetNodes(ctx)
	require.NoError(t, err)
	_, err = repo.GetEdgeExists(ctx, "a", "b")
	require.NoError(t, err)

	entries, err := log.GetLogs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionGetEdgeExists, entries[0].Action)
	assert.Equal(t, "a->b", entries[0].EntityID)
	assert.Equal(t, model.ActionGetNodes, entries[1].Action)
	assert.Equal(t, model.AllEntities, entries[1].EntityID)
	assert.Equal(t, model.ActionGetNode, entries[2].Action)
	for _, e := range entries {
		assert.Nil(t, e.OldData)
		assert.Nil(t, e.NewData)
	}
}

func TestAuditWithoutActorRecordsAnonymous(t *testing.T) {
	_, repo, log := newAuditedGraph(t)
	_, err := repo.InsertNode(context.Background(), mustNode(t, "a", nil))
	require.NoError(t, err)

	entries, err := log.GetAuditHistory(context.Background(), model.EntityNode, "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditctx.Anonymous, entries[0].UserID)
	assert.Empty(t, entries[0].IPAddress)
}

// failingLog rejects every entry, to check that the mutation is rolled back with it.
type failingLog struct{ AuditLog }

func (failingLog) InsertAuditEntry(context.Context, model.AuditEntry) error {
	return errors.New("disk full")
}

func TestAuditFailureRollsBackMutation(t *testing.T) {
	db := setupTestDB(t)
	inner := NewGraphRepository(db)
	repo := NewAuditedGraph(inner, failingLog{}, WithTransactor(db))

	ok, err := repo.InsertNode(actorCtx(), mustNode(t, "a", nil))
	require.Error(t, err)
	assert.False(t, ok)

	exists, err := inner.GetNodeExists(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAuditedStatus(t *testing.T) {
	ctx := actorCtx()
	db := setupTestDB(t)
	insertNodes(t, NewGraphRepository(db), "n1")
	log := NewAuditLog(db)
	repo := NewAuditedStatus(NewStatusRepository(db), log, WithTransactor(db))

	require.NoError(t, repo.SetNodeStatus(ctx, "n1", model.StatusHealthy))
	require.NoError(t, repo.SetNodeStatus(ctx, "n1", model.StatusImpacted))
	require.Error(t, repo.SetNodeStatus(ctx, "ghost", model.StatusHealthy))

	entries, err := log.GetAuditHistory(context.Background(), model.EntityStatus, "n1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "healthy", decode(t, entries[0].OldData)["status"])
	assert.Equal(t, "impacted", decode(t, entries[0].NewData)["status"])
	assert.Equal(t, "unknown", decode(t, entries[1].OldData)["status"])
}

func TestGetLogsLimit(t *testing.T) {
	ctx := actorCtx()
	_, repo, log := newAuditedGraph(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.InsertNode(ctx, mustNode(t, id, nil))
		require.NoError(t, err)
	}
	entries, err := log.GetLogs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].EntityID)
	assert.Equal(t, "b", entries[1].EntityID)
}

func TestAuditDuplicateInsertRecordsStoredDocument(t *testing.T) {
	_, repo, log := newAuditedGraph(t)
	ok, err := repo.InsertNode(actorCtx(), mustNode(t, "a", map[string]any{"v": "1"}))
	require.NoError(t, err)
	require.True(t, ok)

	bob := auditctx.WithActor(context.Background(), auditctx.Actor{UserID: "bob", Group: model.GroupContributor})
	ok, err = repo.InsertNode(bob, mustNode(t, "a", map[string]any{"v": "2"}))
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := log.GetAuditHistory(context.Background(), model.EntityNode, "a")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	dup := entries[0]
	assert.Equal(t, "bob", dup.UserID)
	assert.Equal(t, model.ActionInsert, dup.Action)
	require.NotNil(t, dup.OldData)
	assert.JSONEq(t, string(dup.OldData), string(dup.NewData))
	assert.Equal(t, map[string]any{"v": "1"}, decode(t, dup.NewData)["data"])

	first := entries[1]
	assert.Equal(t, "alice", first.UserID)
	assert.Nil(t, first.OldData)
}

func TestAuditEdgeHistoryWithHyphenatedNodes(t *testing.T) {
	ctx := actorCtx()
	_, repo, log := newAuditedGraph(t)
	for _, id := range []string{"a-b", "c", "a", "b-c"} {
		_, err := repo.InsertNode(ctx, mustNode(t, id, nil))
		require.NoError(t, err)
	}
	_, err := repo.InsertEdge(ctx, mustEdge(t, "a-b", "c"))
	require.NoError(t, err)
	_, err = repo.InsertEdge(ctx, mustEdge(t, "a", "b-c"))
	require.NoError(t, err)

	tests := []struct {
		id             string
		source, target string
	}{
		{"a-b->c", "a-b", "c"},
		{"a->b-c", "a", "b-c"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			entries, err := log.GetAuditHistory(context.Background(), model.EntityEdge, tt.id)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			doc := decode(t, entries[0].NewData)
			assert.Equal(t, tt.source, doc["source"])
			assert.Equal(t, tt.target, doc["target"])
		})
	}
}

func TestAuditedStatusReadActions(t *testing.T) {
	ctx := actorCtx()
	db := setupTestDB(t)
	insertNodes(t, NewGraphRepository(db), "n1")
	log := NewAuditLog(db)
	repo := NewAuditedStatus(NewStatusRepository(db), log, WithTransactor(db), WithReadAuditing(true))

	_, err := repo.GetNodeStatus(ctx, "n1")
	require.NoError(t, err)
	_, err = repo.GetNodeStatusHistory(ctx, "n1", 5)
	require.NoError(t, err)

	entries, err := log.GetAuditHistory(context.Background(), model.EntityStatus, "n1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionGetStatusHistory, entries[0].Action)
	assert.Equal(t, model.ActionGetStatus, entries[1].Action)
}
