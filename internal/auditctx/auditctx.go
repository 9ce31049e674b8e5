// Package auditctx carries the identity of the current caller through a
// request's context so repository decorators can attribute their work.
package auditctx

import (
	"context"
	"net"
	"net/http"
	"strings"

	"graphd/internal/model"
)

// Anonymous is the user id recorded when no caller has been identified.
const Anonymous = "anonymous"

// Actor is the caller a request runs on behalf of.
type Actor struct {
	UserID    string
	Group     model.Group
	IP        string
	RequestID string
}

type key struct{}

// WithActor returns a copy of ctx that carries the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, key{}, a)
}

// FromContext returns the actor stored in ctx, or an anonymous actor.
func FromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(key{}).(Actor); ok {
		return a
	}
	return Actor{UserID: Anonymous, Group: model.GroupAnonymous}
}

// Clear returns a copy of ctx in which no actor is visible.
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, key{}, nil)
}

// ClientIP resolves the originating address of r: the first X-Forwarded-For
// entry, then X-Real-IP, then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
