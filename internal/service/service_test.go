package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"graphd/internal/auditctx"
	"graphd/internal/model"
	"graphd/internal/store"
)

func setupService(t *testing.T, logger *zap.Logger) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(store.NewStack(db, logger, store.StackOptions{}), logger), db
}

func as(group model.Group) context.Context {
	return auditctx.WithActor(context.Background(), auditctx.Actor{UserID: string(group) + "-user", Group: group, IP: "127.0.0.1"})
}

func node(id string) NodeInput {
	return NodeInput{ID: id, Label: "Node " + id, Category: "application", Type: "service"}
}

func TestPermissionTable(t *testing.T) {
	tests := []struct {
		action Action
		allow  []model.Group
	}{
		{ActionGetGraph, []model.Group{model.GroupAdmin, model.GroupContributor, model.GroupConsumer, model.GroupAnonymous}},
		{ActionGetLogs, []model.Group{model.GroupAdmin, model.GroupContributor, model.GroupConsumer, model.GroupAnonymous}},
		{ActionInsertNode, []model.Group{model.GroupAdmin, model.GroupContributor}},
		{ActionSetStatus, []model.Group{model.GroupAdmin, model.GroupContributor}},
		{ActionDeleteProject, []model.Group{model.GroupAdmin, model.GroupContributor}},
		{ActionInsertCategory, []model.Group{model.GroupAdmin}},
		{ActionUpdateUser, []model.Group{model.GroupAdmin}},
		{Action("drop_everything"), nil},
	}
	all := []model.Group{model.GroupAdmin, model.GroupContributor, model.GroupConsumer, model.GroupAnonymous}
	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			var got []model.Group
			for _, g := range all {
				if Allowed(tt.action, g) {
					got = append(got, g)
				}
			}
			if diff := cmp.Diff(tt.allow, got); diff != "" {
				t.Errorf("allowed groups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPermissionDeniedBeforeStorage(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	svc, db := setupService(t, zap.New(core))

	_, err := svc.InsertNode(as(model.GroupConsumer), node("a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.InsertNode(context.Background(), node("a"))
	assert.ErrorIs(t, err, ErrPermissionDenied, "no actor is anonymous")

	err = svc.InsertCategory(as(model.GroupContributor), model.Category{ID: "x", Name: "X", Shape: "star", Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n))
	assert.Zero(t, n)
	var audits int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM audit`).Scan(&audits))
	assert.Zero(t, audits)
	assert.Equal(t, 3, logs.FilterMessage("Permission denied").Len())
}

func TestInsertNodeChecksCatalog(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := as(model.GroupContributor)

	in := node("a")
	in.Category = "galaxy"
	_, err := svc.InsertNode(ctx, in)
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "category", ve.Field)

	in = node("a")
	in.Type = "spaceship"
	_, err = svc.InsertNode(ctx, in)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "type", ve.Field)

	in = node("bad id!")
	_, err = svc.InsertNode(ctx, in)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "id", ve.Field)

	in = node("a")
	in.UserCreated = true
	got, err := svc.InsertNode(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.UserCreated)
	assert.Equal(t, map[string]any{}, got.Data)
}

func TestGraphViewAttachesStatus(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := as(model.GroupAdmin)

	n, err := svc.InsertNodes(ctx, []NodeInput{node("a"), node("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = svc.InsertEdge(ctx, EdgeInput{Source: "a", Target: "b"})
	require.NoError(t, err)
	ok, err := svc.SetNodeStatus(ctx, "b", "impacted")
	require.NoError(t, err)
	assert.True(t, ok)

	g, err := svc.GetGraph(as(model.GroupAnonymous))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, model.StatusUnknown, g.Nodes[0].Status)
	assert.Equal(t, model.StatusImpacted, g.Nodes[1].Status)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, model.DefaultEdgeLabel, g.Edges[0].Label)
}

func TestSetNodeStatus(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := as(model.GroupContributor)
	_, err := svc.InsertNode(ctx, node("a"))
	require.NoError(t, err)

	_, err = svc.SetNodeStatus(ctx, "a", "on fire")
	assert.True(t, model.IsValidationError(err))

	ok, err := svc.SetNodeStatus(ctx, "ghost", "healthy")
	require.NoError(t, err)
	assert.False(t, ok)

	st, err := svc.GetNodeStatus(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = svc.GetNodeStatus(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnknown, st.Status)

	_, err = svc.SetNodeStatus(ctx, "a", "maintenance")
	require.NoError(t, err)
	history, err := svc.GetNodeStatusHistory(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusMaintenance, history[0].Status)
}

func TestBatchInsertStopsAtFirstFailure(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := as(model.GroupAdmin)
	_, err := svc.InsertNodes(ctx, []NodeInput{node("a"), node("b"), node("c")})
	require.NoError(t, err)

	n, err := svc.InsertEdges(ctx, []EdgeInput{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
		{Source: "c", Target: "a"},
		{Source: "a", Target: "c"},
	})
	require.Error(t, err)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, store.ErrCycle)
	assert.Contains(t, err.Error(), "edge 2 (c-a)")

	edges, err := svc.GetEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 2, "earlier inserts are kept")
}

func TestMutationsAreAuditedWithActor(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := as(model.GroupContributor)

	_, err := svc.InsertNode(ctx, node("a"))
	require.NoError(t, err)
	ok, err := svc.DeleteNode(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.DeleteNode(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	logs, err := svc.GetLogs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.ActionDelete, logs[0].Action)
	assert.Equal(t, model.ActionInsert, logs[1].Action)
	assert.Equal(t, "contributor-user", logs[0].UserID)
	assert.Equal(t, "127.0.0.1", logs[0].IPAddress)

	history, err := svc.GetAuditHistory(ctx, model.EntityNode, "a")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestParentsAndDependentsOfMissingNode(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := as(model.GroupConsumer)
	parents, err := svc.GetParents(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, parents)
	deps, err := svc.GetDependents(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, deps)
}

func TestProjects(t *testing.T) {
	svc, _ := setupService(t, nil)
	svc.newID = func() string { return "generated" }
	ctx := as(model.GroupContributor)
	_, err := svc.InsertNodes(ctx, []NodeInput{node("a"), node("b"), node("c")})
	require.NoError(t, err)

	p, err := svc.InsertProject(ctx, ProjectInput{Name: "Billing", Nodes: []string{"a", "b"}})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "generated", p.ID)
	assert.Equal(t, "contributor-user", p.Author)

	ok, err := svc.UpdateProject(ctx, ProjectInput{ID: "generated", Name: "Billing 2", Nodes: []string{"b", "c"}})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.GetProject(ctx, "generated")
	require.NoError(t, err)
	assert.Equal(t, "Billing 2", got.Name)
	assert.Equal(t, []string{"b", "c"}, got.Nodes)

	ok, err = svc.UpdateProject(ctx, ProjectInput{ID: "missing", Name: "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.InsertProject(as(model.GroupConsumer), ProjectInput{Name: "nope"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCatalogAdministration(t *testing.T) {
	svc, _ := setupService(t, nil)
	admin := as(model.GroupAdmin)

	require.NoError(t, svc.InsertType(admin, model.Type{ID: "queue", Name: "Queue"}))
	assert.ErrorIs(t, svc.InsertType(admin, model.Type{ID: "queue", Name: "Queue"}), store.ErrDuplicate)

	err := svc.InsertCategory(admin, model.Category{ID: "net", Name: "Net", Shape: "blob", Width: 10, Height: 10})
	assert.True(t, model.IsValidationError(err))

	require.NoError(t, svc.InsertUser(admin, model.User{ID: "dave", Group: model.GroupConsumer}))
	group, err := svc.GroupOf(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, model.GroupConsumer, group)

	group, err = svc.GroupOf(context.Background(), "stranger")
	require.NoError(t, err)
	assert.Equal(t, model.GroupAnonymous, group)
}
