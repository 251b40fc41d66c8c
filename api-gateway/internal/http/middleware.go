package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/metadata"

	orderspb "github.com/fjod/go_shop/orders-service/pkg/api"
)

// Headers set by the upstream authentication layer. They are trusted as is.
const (
	HeaderUserID         = "X-User-Id"
	HeaderUserName       = "X-User-Name"
	HeaderUserEmail      = "X-User-Email"
	HeaderUserRole       = "X-User-Role"
	HeaderIdempotencyKey = "Idempotency-Key"
)

type ctxKey int

const callerKey ctxKey = iota

// Caller is the identity asserted for the current request.
type Caller struct {
	ID    string
	Name  string
	Email string
	Role  string
}

func (c Caller) authenticated() bool {
	return c.ID != "" || c.Email != ""
}

// IdentityMiddleware lifts the caller headers into the request context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := Caller{
			ID:    strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
			Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			Role:  strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
	})
}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func callerFromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey).(Caller)
	return c
}

// RequestIDMiddleware echoes chi's request id back to the client.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(middleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// outgoingContext forwards the caller and request id to the orders service as gRPC metadata.
// The display name and idempotency key are path-escaped since metadata values must be printable ASCII.
func outgoingContext(ctx context.Context, r *http.Request) context.Context {
	c := callerFromContext(r.Context())
	kv := []string{
		orderspb.MetadataUserID, c.ID,
		orderspb.MetadataUserName, url.PathEscape(c.Name),
		orderspb.MetadataUserEmail, c.Email,
		orderspb.MetadataUserRole, c.Role,
		orderspb.MetadataRequestID, middleware.GetReqID(r.Context()),
	}
	if key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)); key != "" {
		kv = append(kv, orderspb.MetadataIdempotencyKey, url.PathEscape(key))
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}
