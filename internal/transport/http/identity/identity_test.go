package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/orderview/internal/service/models/viewer"
	"github.com/stretchr/testify/assert"
)

func TestFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    viewer.Viewer
	}{
		{name: "anonymous", want: viewer.Viewer{}},
		{
			name:    "customer",
			headers: map[string]string{HeaderUserID: "u1"},
			want:    viewer.Viewer{UserID: "u1", IsAuthenticated: true},
		},
		{
			name:    "admin",
			headers: map[string]string{HeaderUserID: "u2", HeaderIsAdmin: "true"},
			want:    viewer.Viewer{UserID: "u2", IsAuthenticated: true, IsAdmin: true},
		},
		{
			name:    "admin flag without user",
			headers: map[string]string{HeaderIsAdmin: "true"},
			want:    viewer.Viewer{},
		},
		{
			name:    "garbage admin flag",
			headers: map[string]string{HeaderUserID: "u3", HeaderIsAdmin: "yes please"},
			want:    viewer.Viewer{UserID: "u3", IsAuthenticated: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, FromHeaders(h))
		})
	}
}

func TestMiddlewareStoresViewer(t *testing.T) {
	var got viewer.Viewer
	h := NewIdentityMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "u1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.IsAuthenticated)
}
