package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/alojadmin/internal/calendar"
	"github.com/dukerupert/alojadmin/internal/gateway"
	"github.com/dukerupert/alojadmin/internal/handler"
	"github.com/dukerupert/alojadmin/internal/middleware"
	"github.com/dukerupert/alojadmin/internal/session"
	"github.com/dukerupert/alojadmin/internal/store"
	ws "github.com/dukerupert/alojadmin/internal/websocket"
)

const (
	loginLimit  = 10
	loginWindow = time.Minute
)

// Options holds HTTP surface settings.
type Options struct {
	CookieSecure   bool
	OriginPatterns []string
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	sessions       *session.Manager
	authH          *handler.AuthHandler
	reservationH   *handler.ReservationHandler
	accommodationH *handler.AccommodationHandler
	activityH      *handler.ActivityHandler
	rateLimiter    *middleware.RateLimiter
	originPatterns []string
	logger         *slog.Logger
}

func New(db *sql.DB, gw *gateway.Client, sessions *session.Manager, svc *calendar.Service, hub *ws.Hub, opts Options, logger *slog.Logger) *Server {
	activityStore := store.NewActivityStore(db)

	return &Server{
		db:             db,
		hub:            hub,
		sessions:       sessions,
		authH:          handler.NewAuthHandler(gw, sessions, svc, hub, opts.CookieSecure, logger.With("component", "auth")),
		reservationH:   handler.NewReservationHandler(svc, logger.With("component", "reservation")),
		accommodationH: handler.NewAccommodationHandler(gw, svc, hub, logger.With("component", "accommodation")),
		activityH:      handler.NewActivityHandler(activityStore, logger.With("component", "activity")),
		rateLimiter:    middleware.NewRateLimiter(),
		originPatterns: opts.OriginPatterns,
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /login", s.authH.LoginInfo)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessions, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestLogger(httpLogger)(middleware.Recover(httpLogger)(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ByIP, loginLimit, loginWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Session routes
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Reservation API routes
	mux.HandleFunc("GET /api/reservations/events", s.reservationH.Events)
	mux.HandleFunc("POST /api/reservations/refresh", s.reservationH.Refresh)
	mux.HandleFunc("GET /api/reservations/options", s.reservationH.Options)
	mux.HandleFunc("GET /api/reservations/calendar.ics", s.reservationH.Calendar)
	mux.HandleFunc("POST /api/reservations", s.reservationH.Create)
	mux.HandleFunc("POST /api/reservations/{id}/cancel", s.reservationH.Cancel)

	// Accommodation API routes
	mux.HandleFunc("GET /api/accommodations", s.accommodationH.List)
	mux.HandleFunc("POST /api/accommodations", s.accommodationH.Create)
	mux.HandleFunc("GET /api/accommodations/{id}", s.accommodationH.Get)
	mux.HandleFunc("PUT /api/accommodations/{id}", s.accommodationH.Update)
	mux.HandleFunc("DELETE /api/accommodations/{id}", s.accommodationH.Delete)
	mux.HandleFunc("GET /api/accommodations/{id}/availability", s.accommodationH.Availability)

	// Activity log
	mux.HandleFunc("GET /api/activity", s.activityH.List)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket")))
}
