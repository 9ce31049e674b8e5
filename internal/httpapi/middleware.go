package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"graphd/internal/auditctx"
	"graphd/internal/model"
)

const requestIDHeader = "X-Request-ID"

// cors sets CORS headers so the editor can be served from another origin.
func (a *App) cors(next http.Handler) http.Handler {
	origin := a.opts.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, "+requestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID keeps the caller's X-Request-ID or assigns a new one, under
// chi's request id key so middleware.GetReqID finds it.
func (a *App) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// identity resolves the caller from an optional bearer token and stores it in
// the request context. No token, or a token for an unknown user, is anonymous.
func (a *App) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := auditctx.Actor{
			UserID:    auditctx.Anonymous,
			Group:     model.GroupAnonymous,
			IP:        auditctx.ClientIP(r),
			RequestID: middleware.GetReqID(r.Context()),
		}
		if raw, ok := bearerToken(r); ok {
			userID, err := a.verifyToken(raw)
			if err != nil {
				a.logger.Info("Rejected bearer token", zap.Error(err), zap.String("ip", actor.IP))
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			group, err := a.svc.GroupOf(r.Context(), userID)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			if group != model.GroupAnonymous {
				actor.UserID = userID
				actor.Group = group
			}
		}
		next.ServeHTTP(w, r.WithContext(auditctx.WithActor(r.Context(), actor)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func (a *App) verifyToken(raw string) (string, error) {
	if len(a.opts.JWTSecret) == 0 {
		return "", errors.New("token authentication is not configured")
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return a.opts.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// rateLimit throttles mutating requests when a limiter is configured.
func (a *App) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && isMutation(r.Method) && !a.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
