package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/flatrota/internal/handler"
	"github.com/dukerupert/flatrota/internal/middleware"
	"github.com/dukerupert/flatrota/internal/periodstore"
	"github.com/dukerupert/flatrota/internal/store"
	ws "github.com/dukerupert/flatrota/internal/websocket"
)

type Options struct {
	CORSOrigins []string
	// Now overrides the clock used for completions, resets and queries.
	Now func() time.Time
}

type Server struct {
	db          *sql.DB
	stores      *store.Stores
	periods     *periodstore.Store
	hub         *ws.Hub
	userH       *handler.UserHandler
	flatH       *handler.FlatHandler
	taskH       *handler.TaskHandler
	periodH     *handler.PeriodHandler
	rateLimiter *middleware.RateLimiter
	opts        Options
	logger      *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	stores := store.New(db)
	periods := periodstore.New()

	deps := handler.Deps{
		Stores:  stores,
		Periods: periods,
		Hub:     hub,
		Now:     opts.Now,
	}
	with := func(component string) handler.Deps {
		d := deps
		d.Logger = logger.With("component", component)
		return d
	}

	return &Server{
		db:          db,
		stores:      stores,
		periods:     periods,
		hub:         hub,
		userH:       handler.NewUserHandler(with("user")),
		flatH:       handler.NewFlatHandler(with("flat")),
		taskH:       handler.NewTaskHandler(with("task")),
		periodH:     handler.NewPeriodHandler(with("period")),
		rateLimiter: middleware.NewRateLimiter(),
		opts:        opts,
		logger:      logger,
	}
}

// Hub returns the websocket hub for background broadcasters.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Stores returns the persistence layer.
func (s *Server) Stores() *store.Stores {
	return s.stores
}

// Periods returns the in-memory period cache.
func (s *Server) Periods() *periodstore.Store {
	return s.periods
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("POST /users", s.limit(middleware.RealIP, 10, s.userH.Create))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)
	outerMux.Handle("/", middleware.RequireUser(s.stores.Users)(protectedMux))

	h := middleware.CORS(s.opts.CORSOrigins)(outerMux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		status, code = "database unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) limit(keyFunc func(*http.Request) string, perMinute int, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, keyFunc, perMinute, time.Minute)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/me", s.userH.Me)
	mux.HandleFunc("PUT /users/me", s.userH.UpdateProfile)

	// Flats
	mux.HandleFunc("POST /flats", s.flatH.Create)
	mux.HandleFunc("GET /flats", s.flatH.List)
	mux.HandleFunc("GET /flats/{id}/members", s.flatH.ListMembers)
	mux.HandleFunc("POST /flats/{id}/members", s.flatH.Join)
	mux.HandleFunc("DELETE /flats/{id}/members/{userID}", s.flatH.Leave)

	// Tasks
	mux.HandleFunc("POST /flats/{id}/tasks", s.taskH.Create)
	mux.HandleFunc("GET /flats/{id}/tasks", s.taskH.ListByFlat)
	mux.HandleFunc("GET /tasks/{id}", s.taskH.Get)
	mux.HandleFunc("POST /tasks/{id}/close", s.taskH.Close)
	mux.HandleFunc("PUT /tasks/{id}/members", s.taskH.UpdateMembers)

	// Periods
	mux.HandleFunc("GET /tasks/{id}/periods", s.periodH.List)
	mux.Handle("PUT /tasks/{id}/periods", s.limit(middleware.ByCaller, 30, s.periodH.Reset))
	mux.Handle("PATCH /tasks/{id}/periods/{periodId}/complete", s.limit(middleware.ByCaller, 60, s.periodH.Complete))
	mux.HandleFunc("GET /periods/current", s.periodH.Current)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.stores.Flats, originHosts(s.opts.CORSOrigins), s.logger.With("component", "websocket")))
}

// originHosts turns CORS origins into the host patterns the websocket
// upgrader matches against.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
