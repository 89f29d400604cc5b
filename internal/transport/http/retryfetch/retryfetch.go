package retryfetch

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
)

type session interface {
	RetryFetch(ctx context.Context) error
	Snapshot() viewsvc.View
}

// RetryFetch reloads an order whose fetch failed.
func RetryFetch(w http.ResponseWriter, r *http.Request, session session) {
	if err := session.RetryFetch(r.Context()); err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusAccepted, session.Snapshot())
}
