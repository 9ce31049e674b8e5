package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphd/internal/model"
)

func TestStatusDefaultsToUnknown(t *testing.T) {
	repo := NewStatusRepository(setupTestDB(t))
	st, err := repo.GetNodeStatus(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, st)
}

func TestSetNodeStatusKeepsOneLatestRow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	insertNodes(t, NewGraphRepository(db), "n1", "n2")
	repo := NewStatusRepository(db)

	require.NoError(t, repo.SetNodeStatus(ctx, "n1", model.StatusHealthy))
	require.NoError(t, repo.SetNodeStatus(ctx, "n1", model.StatusUnhealthy))
	require.NoError(t, repo.SetNodeStatus(ctx, "n2", model.StatusMaintenance))

	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM status WHERE node_id = ?`, "n1"))
	st, err := repo.GetNodeStatus(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnhealthy, st)

	all, err := repo.GetStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "n1", all[0].NodeID)
	assert.Equal(t, model.StatusUnhealthy, all[0].Status)
	assert.Equal(t, model.StatusMaintenance, all[1].Status)

	history, err := repo.GetNodeStatusHistory(ctx, "n1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.StatusUnhealthy, history[0].Status, "most recent first")
	assert.Equal(t, model.StatusHealthy, history[1].Status)
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt))

	history, err = repo.GetNodeStatusHistory(ctx, "n1", 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSetNodeStatusRequiresNode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStatusRepository(db)

	err := repo.SetNodeStatus(context.Background(), "ghost", model.StatusHealthy)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForeignKey)
	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM status_history`), "history write rolled back")
}
