package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphd/internal/model"
)

func TestCatalogCategories(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(setupTestDB(t))

	cats, err := repo.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "business", cats[0].ID)

	c := model.Category{ID: "network", Name: "Network", Shape: "diamond", Width: 40, Height: 40}
	require.NoError(t, repo.InsertCategory(ctx, c))

	err = repo.InsertCategory(ctx, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	var dbErr *DatabaseError
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "network", dbErr.Key)

	c.Name = "Networking"
	ok, err := repo.UpdateCategory(ctx, c)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetCategory(ctx, "network")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c, *got)

	ok, err = repo.DeleteCategory(ctx, "network")
	require.NoError(t, err)
	assert.True(t, ok)
	got, err = repo.GetCategory(ctx, "network")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCatalogTypes(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(setupTestDB(t))

	require.NoError(t, repo.InsertType(ctx, model.Type{ID: "queue", Name: "Queue"}))
	assert.ErrorIs(t, repo.InsertType(ctx, model.Type{ID: "queue", Name: "Again"}), ErrDuplicate)

	types, err := repo.GetTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 6)

	ok, err := repo.UpdateType(ctx, model.Type{ID: "missing", Name: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DeleteType(ctx, "queue")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCatalogUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(setupTestDB(t))

	admin, err := repo.GetUser(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, model.GroupAdmin, admin.Group)

	require.NoError(t, repo.InsertUser(ctx, model.User{ID: "carol", Group: model.GroupConsumer}))
	assert.ErrorIs(t, repo.InsertUser(ctx, model.User{ID: "carol", Group: model.GroupAdmin}), ErrDuplicate)

	ok, err := repo.UpdateUser(ctx, model.User{ID: "carol", Group: model.GroupContributor})
	require.NoError(t, err)
	assert.True(t, ok)

	u, err := repo.GetUser(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, model.GroupContributor, u.Group)

	u, err = repo.GetUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}
