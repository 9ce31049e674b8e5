package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"graphd/internal/model"
	"graphd/internal/service"
	"graphd/internal/store"
)

const maxBodyBytes = 1 << 20

func (a *App) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.GetGraph(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Nodes

func (a *App) handleGetNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := a.svc.GetNodes(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (a *App) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := a.svc.GetNode(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if n == nil {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *App) handleInsertNode(w http.ResponseWriter, r *http.Request) {
	var in service.NodeInput
	if !decodeBody(w, r, &in) {
		return
	}
	n, err := a.svc.InsertNode(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (a *App) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var in service.NodeInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "id")
	ok, err := a.svc.UpdateNode(r.Context(), in)
	a.respondChanged(w, r, ok, err, "node not found")
}

func (a *App) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	ok, err := a.svc.DeleteNode(r.Context(), chi.URLParam(r, "id"))
	a.respondChanged(w, r, ok, err, "node not found")
}

func (a *App) handleGetParents(w http.ResponseWriter, r *http.Request) {
	nodes, err := a.svc.GetParents(r.Context(), chi.URLParam(r, "id"))
	a.respondNodes(w, r, nodes, err)
}

func (a *App) handleGetDependents(w http.ResponseWriter, r *http.Request) {
	nodes, err := a.svc.GetDependents(r.Context(), chi.URLParam(r, "id"))
	a.respondNodes(w, r, nodes, err)
}

func (a *App) respondNodes(w http.ResponseWriter, r *http.Request, nodes []model.Node, err error) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if nodes == nil {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// Statuses

func (a *App) handleGetStatuses(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.GetStatuses(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleGetNodeStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.GetNodeStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if st == nil {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *App) handleSetNodeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	ok, err := a.svc.SetNodeStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	a.respondChanged(w, r, ok, err, "node not found")
}

func (a *App) handleGetNodeStatusHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	out, err := a.svc.GetNodeStatusHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Edges

func (a *App) handleGetEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := a.svc.GetEdges(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edges)
}

func (a *App) handleGetEdge(w http.ResponseWriter, r *http.Request) {
	e, err := a.svc.GetEdge(r.Context(), chi.URLParam(r, "source"), chi.URLParam(r, "target"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if e == nil {
		writeError(w, http.StatusNotFound, "edge not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *App) handleInsertEdge(w http.ResponseWriter, r *http.Request) {
	var in service.EdgeInput
	if !decodeBody(w, r, &in) {
		return
	}
	e, err := a.svc.InsertEdge(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (a *App) handleUpdateEdge(w http.ResponseWriter, r *http.Request) {
	var in service.EdgeInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.Source, in.Target = chi.URLParam(r, "source"), chi.URLParam(r, "target")
	ok, err := a.svc.UpdateEdge(r.Context(), in)
	a.respondChanged(w, r, ok, err, "edge not found")
}

func (a *App) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	ok, err := a.svc.DeleteEdge(r.Context(), chi.URLParam(r, "source"), chi.URLParam(r, "target"))
	a.respondChanged(w, r, ok, err, "edge not found")
}

// Catalog

func (a *App) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.GetCategories(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleInsertCategory(w http.ResponseWriter, r *http.Request) {
	var c model.Category
	if !decodeBody(w, r, &c) {
		return
	}
	if err := a.svc.InsertCategory(r.Context(), c); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (a *App) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c model.Category
	if !decodeBody(w, r, &c) {
		return
	}
	c.ID = chi.URLParam(r, "id")
	ok, err := a.svc.UpdateCategory(r.Context(), c)
	a.respondChanged(w, r, ok, err, "category not found")
}

func (a *App) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ok, err := a.svc.DeleteCategory(r.Context(), chi.URLParam(r, "id"))
	a.respondChanged(w, r, ok, err, "category not found")
}

func (a *App) handleGetTypes(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.GetTypes(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleInsertType(w http.ResponseWriter, r *http.Request) {
	var t model.Type
	if !decodeBody(w, r, &t) {
		return
	}
	if err := a.svc.InsertType(r.Context(), t); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *App) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	var t model.Type
	if !decodeBody(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	ok, err := a.svc.UpdateType(r.Context(), t)
	a.respondChanged(w, r, ok, err, "type not found")
}

func (a *App) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	ok, err := a.svc.DeleteType(r.Context(), chi.URLParam(r, "id"))
	a.respondChanged(w, r, ok, err, "type not found")
}

// Users

func (a *App) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *App) handleInsertUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if !decodeBody(w, r, &u) {
		return
	}
	if err := a.svc.InsertUser(r.Context(), u); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *App) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var u model.User
	if !decodeBody(w, r, &u) {
		return
	}
	u.ID = chi.URLParam(r, "id")
	ok, err := a.svc.UpdateUser(r.Context(), u)
	a.respondChanged(w, r, ok, err, "user not found")
}

// Projects

func (a *App) handleGetProjects(w http.ResponseWriter, r *http.Request) {
	out, err := a.svc.GetProjects(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) handleGetProjectGraph(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.GetProjectGraph(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *App) handleInsertProject(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if !decodeBody(w, r, &in) {
		return
	}
	p, err := a.svc.InsertProject(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var in service.ProjectInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.ID = chi.URLParam(r, "id")
	ok, err := a.svc.UpdateProject(r.Context(), in)
	a.respondChanged(w, r, ok, err, "project not found")
}

func (a *App) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	ok, err := a.svc.DeleteProject(r.Context(), chi.URLParam(r, "id"))
	a.respondChanged(w, r, ok, err, "project not found")
}

// Audit

func (a *App) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(w, r)
	if !ok {
		return
	}
	out, err := a.svc.GetLogs(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) handleGetAuditHistory(w http.ResponseWriter, r *http.Request) {
	et := model.EntityType(chi.URLParam(r, "entityType"))
	out, err := a.svc.GetAuditHistory(r.Context(), et, chi.URLParam(r, "entityID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// respondChanged answers 204 for a change that was applied and 404 for a missing entity.
func (a *App) respondChanged(w http.ResponseWriter, r *http.Request, ok bool, err error, notFound string) {
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps a service error onto a status code. Unclassified errors are
// logged and hidden from the client.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case model.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case store.IsConstraint(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		a.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid query parameter limit")
		return 0, false
	}
	return limit, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
