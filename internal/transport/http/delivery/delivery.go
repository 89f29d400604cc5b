package delivery

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
)

type session interface {
	MarkDelivered(ctx context.Context) error
	Snapshot() viewsvc.View
}

// MarkDelivered records delivery of the viewed order.
func MarkDelivered(w http.ResponseWriter, r *http.Request, session session) {
	if err := session.MarkDelivered(r.Context()); err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, http.StatusAccepted, session.Snapshot())
}
