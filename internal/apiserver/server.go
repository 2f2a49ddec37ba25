// Package apiserver exposes the graphs/*/descrs, /params, /new, /values and
// /orders HTTP surface described by main.py, plus a websocket push channel
// the original doesn't have. Routing, middleware layering and auth are
// grounded on the teacher's internal/api and internal/webhooks packages.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"microtrader/internal/cache"
	"microtrader/internal/config"
	"microtrader/internal/graph"
	"microtrader/internal/trading"
)

// Server bundles the HTTP router with the state it serves off of: the
// bounded handle cache and the order sink.
type Server struct {
	httpServer *http.Server
	cache      *cache.Cache[*graph.Processor]
	orders     *trading.OrderRepo
	auth       *AuthMiddleware
	limiter    *ipLimiter
	hub        *hub
}

// NewServer wires the router and middleware chain, grounded on the
// teacher's NewServer/server_bootstrap.go.
func NewServer(cfg *config.Config, orderRepo *trading.OrderRepo) (*Server, error) {
	handleCache, err := cache.New[*graph.Processor](cfg.CacheLimit)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cache:   handleCache,
		orders:  orderRepo,
		auth:    NewAuthMiddleware(cfg.JWTSecret),
		limiter: newIPLimiter(cfg.RateLimitRPS, cfg.RateBurst),
		hub:     newHub(),
	}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	r.Use(s.limiter.middleware)

	r.HandleFunc("/api/graphs/{name}/descrs", s.handleDescrs).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/graphs/{name}/params", s.handleDefaultParams).Methods(http.MethodGet, http.MethodOptions)
	r.Handle("/api/graphs/{name}/new", s.auth.Middleware(http.HandlerFunc(s.handleNew))).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/api/graphs/{id}/params", s.auth.Middleware(http.HandlerFunc(s.handleSetParams))).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/api/graphs/{id}/values", s.auth.Middleware(http.HandlerFunc(s.handleValues))).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/orders", s.handleOrders).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/graphs/{id}/stream", s.handleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s, nil
}

// commonMiddleware sets permissive CORS headers and short-circuits
// preflight requests, matching the teacher's commonMiddleware.
func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
