// Package server exposes price lookups and CSV imports over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"networth-tracker/internal/logging"
	"networth-tracker/internal/models"
	"networth-tracker/internal/prices"
	"networth-tracker/internal/resilience"
)

// PriceService resolves prices for single holdings and whole portfolios.
type PriceService interface {
	FetchPrice(ctx context.Context, h models.Holding, opts prices.FetchOptions) (*models.PriceResult, error)
	RefreshUser(ctx context.Context, lister prices.HoldingLister, userID string, opts prices.FetchOptions) (map[string]models.PriceResult, error)
}

// Importer imports a CSV upload for a user.
type Importer interface {
	Import(ctx context.Context, userID, csvText string) (*models.ImportResult, error)
}

// BreakerStats reports the state of the provider circuit breakers.
type BreakerStats interface {
	AllStats() []resilience.CircuitBreakerStats
}

// Config holds server configuration
type Config struct {
	Addr         string
	DefaultUser  string
	Log          zerolog.Logger
	Prices       PriceService
	Holdings     prices.HoldingLister
	Transactions Importer
	Snapshots    Importer
	Breakers     BreakerStats
	DevMode      bool
}

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	server       *http.Server
	log          zerolog.Logger
	addr         string
	defaultUser  string
	prices       PriceService
	holdings     prices.HoldingLister
	transactions Importer
	snapshots    Importer
	breakers     BreakerStats
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "server").Logger(),
		addr:         cfg.Addr,
		defaultUser:  cfg.DefaultUser,
		prices:       cfg.Prices,
		holdings:     cfg.Holdings,
		transactions: cfg.Transactions,
		snapshots:    cfg.Snapshots,
		breakers:     cfg.Breakers,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.userMiddleware)

	// batch refreshes with retries can take a while
	s.router.Use(middleware.Timeout(90 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/prices", func(r chi.Router) {
			r.Post("/", s.handleFetchPrice)
			r.Post("/refresh", s.handleRefreshPrices)
		})
		r.Route("/import", func(r chi.Router) {
			r.Post("/transactions", s.handleImport("transactions", s.transactions))
			r.Post("/snapshots", s.handleImport("snapshots", s.snapshots))
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		logging.LogAPICall(log, r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
