package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/orderview/internal/service/models/viewer"
	"github.com/corray333/backend-labs/orderview/internal/service/services/viewsvc"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/applycoupon"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/delivery"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/identity"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/navigate"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/openview"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/pay"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/respond"
	"github.com/corray333/backend-labs/orderview/internal/transport/http/retryfetch"
	metricsmw "github.com/corray333/backend-labs/orderview/pkg/http/middleware/metrics"
	"github.com/corray333/backend-labs/orderview/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/orderview/pkg/logger"
	"github.com/corray333/backend-labs/orderview/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

type service interface {
	Open(v viewer.Viewer) (*viewsvc.Session, error)
	Get(id uuid.UUID, v viewer.Viewer) (*viewsvc.Session, error)
	Close(id uuid.UUID, v viewer.Viewer) error
}

type HTTPTransport struct {
	server         *http.Server
	router         *chi.Mux
	service        service
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	paypalClientID string
}

// option is a function that configures the HTTPTransport.
type option func(*HTTPTransport)

// WithMetrics instruments requests with m and exposes gatherer at /metrics.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) option {
	return func(h *HTTPTransport) {
		h.metrics = m
		h.gatherer = gatherer
	}
}

// WithPayPalClientID sets the client id handed to the PayPal widget.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPayPalClientID(id string) option {
	return func(h *HTTPTransport) {
		h.paypalClientID = id
	}
}

func NewHTTPTransport(service service, opts ...option) *HTTPTransport {
	h := &HTTPTransport{
		service: service,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.router = newRouter(h.metrics)
	h.server = newServer(h.router)

	return h
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Handler returns the root handler.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	if h.gatherer != nil {
		h.router.Handle("/metrics", metrics.Handler(h.gatherer))
	}

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/config/paypal", h.paypalConfig)

		r.Route("/views", func(r chi.Router) {
			r.Post("/", h.openView)
			r.Route("/{viewID}", func(r chi.Router) {
				r.Get("/", h.withSession(h.getView))
				r.Delete("/", h.closeView)
				r.Put("/route", h.withSession(h.navigate))
				r.Post("/fetch", h.withSession(h.retryFetch))
				r.Put("/coupon", h.withSession(h.setCouponInput))
				r.Post("/coupon/apply", h.withSession(h.applyCoupon))
				r.Post("/payments", h.withSession(h.pay))
				r.Post("/delivery", h.withSession(h.markDelivered))
			})
		})
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session *viewsvc.Session)

// withSession resolves {viewID} to a session owned by the requesting viewer.
func (h *HTTPTransport) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := identity.FromContext(r.Context())
		if !v.IsAuthenticated {
			respond.Error(w, r, viewsvc.ErrUnauthenticated)

			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "viewID"))
		if err != nil {
			respond.Error(w, r, viewsvc.ErrSessionNotFound)

			return
		}

		session, err := h.service.Get(id, v)
		if err != nil {
			respond.Error(w, r, err)

			return
		}

		next(w, r, session)
	}
}

func (h *HTTPTransport) openView(w http.ResponseWriter, r *http.Request) {
	openview.OpenView(w, r, h.service)
}

func (h *HTTPTransport) getView(w http.ResponseWriter, _ *http.Request, session *viewsvc.Session) {
	respond.JSON(w, http.StatusOK, session.Snapshot())
}

func (h *HTTPTransport) closeView(w http.ResponseWriter, r *http.Request) {
	v := identity.FromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "viewID"))
	if err != nil {
		id = uuid.Nil
	}
	if err := h.service.Close(id, v); err != nil {
		respond.Error(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPTransport) navigate(w http.ResponseWriter, r *http.Request, session *viewsvc.Session) {
	navigate.Navigate(w, r, session)
}

func (h *HTTPTransport) retryFetch(w http.ResponseWriter, r *http.Request, session *viewsvc.Session) {
	retryfetch.RetryFetch(w, r, session)
}

func (h *HTTPTransport) setCouponInput(w http.ResponseWriter, r *http.Request, session *viewsvc.Session) {
	applycoupon.SetInput(w, r, session)
}

func (h *HTTPTransport) applyCoupon(w http.ResponseWriter, r *http.Request, session *viewsvc.Session) {
	applycoupon.Apply(w, r, session)
}

func (h *HTTPTransport) pay(w http.ResponseWriter, r *http.Request, session *viewsvc.Session) {
	pay.Pay(w, r, session)
}

func (h *HTTPTransport) markDelivered(w http.ResponseWriter, r *http.Request, session *viewsvc.Session) {
	delivery.MarkDelivered(w, r, session)
}

func (h *HTTPTransport) paypalConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(h.paypalClientID)); err != nil {
		slog.Error("Error sending paypal config", "error", err)
	}
}

func newRouter(m *metrics.Metrics) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)
	if m != nil {
		router.Use(metricsmw.NewMetricsMiddleware(m))
	}

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)
	router.Use(identity.NewIdentityMiddleware)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
