// Package httpapi is the JSON API consumed by the graph editor.
package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"graphd/internal/service"
)

// Options configures the HTTP layer.
type Options struct {
	// AllowedOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	AllowedOrigin string
	// JWTSecret verifies HS256 bearer tokens. Without it every caller is anonymous.
	JWTSecret []byte
	// RateLimit caps mutating requests per second across all callers. Zero disables it.
	RateLimit float64
	RateBurst int
	// StaticDir holds the built graph editor, served for every non-API path.
	StaticDir string
}

// App holds server dependencies.
type App struct {
	svc       *service.Service
	logger    *zap.Logger
	opts      Options
	limiter   *rate.Limiter
	staticDir string
}

// NewApp creates an App over svc.
func NewApp(svc *service.Service, logger *zap.Logger, opts Options) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		svc:       svc,
		logger:    logger.Named("http"),
		opts:      opts,
		staticDir: strings.TrimSuffix(opts.StaticDir, "/"),
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return a
}

// Handler returns the HTTP handler (router with CORS, recovery, identity, routes).
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.requestID)
	r.Use(a.accessLog)
	r.Use(a.cors)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(a.identity)
		r.Use(a.rateLimit)

		r.Get("/graph", a.handleGetGraph)

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", a.handleGetNodes)
			r.Post("/", a.handleInsertNode)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetNode)
				r.Put("/", a.handleUpdateNode)
				r.Delete("/", a.handleDeleteNode)
				r.Get("/parents", a.handleGetParents)
				r.Get("/dependents", a.handleGetDependents)
				r.Get("/status", a.handleGetNodeStatus)
				r.Put("/status", a.handleSetNodeStatus)
				r.Get("/status/history", a.handleGetNodeStatusHistory)
			})
		})

		r.Route("/edges", func(r chi.Router) {
			r.Get("/", a.handleGetEdges)
			r.Post("/", a.handleInsertEdge)
			r.Get("/{source}/{target}", a.handleGetEdge)
			r.Put("/{source}/{target}", a.handleUpdateEdge)
			r.Delete("/{source}/{target}", a.handleDeleteEdge)
		})

		r.Get("/statuses", a.handleGetStatuses)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", a.handleGetCategories)
			r.Post("/", a.handleInsertCategory)
			r.Put("/{id}", a.handleUpdateCategory)
			r.Delete("/{id}", a.handleDeleteCategory)
		})

		r.Route("/types", func(r chi.Router) {
			r.Get("/", a.handleGetTypes)
			r.Post("/", a.handleInsertType)
			r.Put("/{id}", a.handleUpdateType)
			r.Delete("/{id}", a.handleDeleteType)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", a.handleInsertUser)
			r.Get("/{id}", a.handleGetUser)
			r.Put("/{id}", a.handleUpdateUser)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", a.handleGetProjects)
			r.Post("/", a.handleInsertProject)
			r.Get("/{id}", a.handleGetProject)
			r.Put("/{id}", a.handleUpdateProject)
			r.Delete("/{id}", a.handleDeleteProject)
			r.Get("/{id}/graph", a.handleGetProjectGraph)
		})

		r.Get("/logs", a.handleGetLogs)
		r.Get("/logs/{entityType}/{entityID}", a.handleGetAuditHistory)
	})

	// SPA: serve the editor if a static dir is set, else 404 for /
	if a.staticDir != "" {
		r.Get("/*", a.serveSPA)
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "No static dir configured (set server.static_dir)", http.StatusNotFound)
		})
	}

	return r
}

// serveSPA serves index.html for editor routes and static files from staticDir.
func (a *App) serveSPA(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}
	fpath := filepath.Join(a.staticDir, filepath.Clean("/"+path))
	if info, err := os.Stat(fpath); err == nil && !info.IsDir() {
		http.ServeFile(w, r, fpath)
		return
	}
	// Client-side routing: any other path → index.html
	indexPath := filepath.Join(a.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err == nil {
		http.ServeFile(w, r, indexPath)
		return
	}
	http.NotFound(w, r)
}
