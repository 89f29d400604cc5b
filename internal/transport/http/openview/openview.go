package openview

import (
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/models/viewer"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/identity"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
	"github.com/gorilla/schema"
)

// service is an interface for the service layer.
type service interface {
	Open(v viewer.Viewer) (*viewsvc.Session, error)
}

// openViewQuery optionally routes the new view to an order right away.
type openViewQuery struct {
	OrderID string `schema:"orderId,omitempty"`
}

// OpenView handles the open view request.
func OpenView(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &openViewQuery{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		respond.Error(w, r, fmt.Errorf("%w: %w", respond.ErrBadRequest, err))

		return
	}

	session, err := service.Open(identity.FromContext(r.Context()))
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	if query.OrderID != "" {
		if err := session.Navigate(r.Context(), query.OrderID); err != nil {
			respond.Error(w, r, err)

			return
		}
	}

	w.Header().Set("Location", "/api/views/"+session.ID().String())
	respond.JSON(w, http.StatusCreated, session.Snapshot())
}
