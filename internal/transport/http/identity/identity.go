package identity

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/corray333/backend-labs/orderview/internal/service/models/viewer"
)

const (
	HeaderUserID  = "X-User-Id"
	HeaderIsAdmin = "X-User-Admin"
)

type ctxKey struct{}

// NewIdentityMiddleware resolves the viewer from headers set by the auth gateway.
// Requests without a user id proceed as an anonymous viewer.
func NewIdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), FromHeaders(r.Header))))
	})
}

// FromHeaders builds a viewer from gateway headers.
func FromHeaders(h http.Header) viewer.Viewer {
	userID := strings.TrimSpace(h.Get(HeaderUserID))
	if userID == "" {
		return viewer.Viewer{}
	}
	isAdmin, _ := strconv.ParseBool(h.Get(HeaderIsAdmin))

	return viewer.Viewer{
		UserID:          userID,
		IsAuthenticated: true,
		IsAdmin:         isAdmin,
	}
}

func WithViewer(ctx context.Context, v viewer.Viewer) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns the viewer of the request, anonymous if none was resolved.
func FromContext(ctx context.Context) viewer.Viewer {
	v, _ := ctx.Value(ctxKey{}).(viewer.Viewer)

	return v
}
