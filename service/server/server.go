package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/blinks/service/actions"
	"github.com/brojonat/blinks/service/auth"
	"github.com/brojonat/blinks/service/blink"
	"github.com/brojonat/blinks/service/config"
	"github.com/brojonat/blinks/service/db"
	"github.com/brojonat/blinks/service/events"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/brojonat/blinks/service/solana"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BlinkStore is the persistence the HTTP layer needs.
type BlinkStore interface {
	GetBlink(ctx context.Context, id string) (*db.Blink, error)
	CreateBlink(ctx context.Context, params db.CreateBlinkParams) (*db.Blink, error)
	ListBlinksByUser(ctx context.Context, userID string) ([]*db.Blink, error)
}

// SessionAuthenticator signs users in and resolves session tokens.
type SessionAuthenticator interface {
	SignIn(ctx context.Context, creds auth.Credentials) (*auth.Session, string, error)
	Session(token string) (*auth.Session, error)
	TTL() time.Duration
}

// DonationAssembler builds unsigned donation transactions.
type DonationAssembler interface {
	AssembleDonation(ctx context.Context, params solana.DonationParams) (*solana.Donation, error)
}

// Server represents the HTTP server for the blinks service.
type Server struct {
	cfg          *config.Config
	blinks       BlinkStore
	auth         SessionAuthenticator
	donations    DonationAssembler
	publisher    events.Publisher
	validator    *blink.Validator
	blockchainID string
	feeLamports  uint64
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The publisher and metrics are optional.
func New(cfg *config.Config, blinks BlinkStore, authn SessionAuthenticator, donations DonationAssembler, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	blockchainID, err := actions.BlockchainID(cfg.SolanaCluster)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blockchain id: %w", err)
	}
	feeLamports, err := solana.ToLamports(cfg.PlatformFeeSOL)
	if err != nil {
		return nil, fmt.Errorf("invalid platform fee: %w", err)
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Server{
		cfg:          cfg,
		blinks:       blinks,
		auth:         authn,
		donations:    donations,
		publisher:    publisher,
		validator:    blink.NewValidator(cfg.MinAmountSOL),
		blockchainID: blockchainID,
		feeLamports:  feeLamports,
		metrics:      m,
		logger:       logger,
	}, nil
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMetricsMiddleware(s.metrics))
	r.Use(sessionMiddleware(s.auth, s.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Solana Actions
	r.With(actions.Headers(s.blockchainID)).Get("/actions.json", handleActionsJSON())
	r.With(actions.Headers(s.blockchainID)).Options("/actions.json", handleActionOptions())
	r.Route(actions.TransferPath+"{blinkId}", func(r chi.Router) {
		r.Use(actions.Headers(s.blockchainID))
		r.Options("/", handleActionOptions())
		r.Get("/", handleActionMetadata(s.blinks, s.cfg.BaseURL(), s.metrics, s.logger))
		r.Post("/", handleActionTransaction(s.blinks, s.donations, s.cfg.PlatformFeeKey(), s.feeLamports, s.metrics, s.logger))
	})

	r.Route("/api/blinks", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.Post("/", handleCreateBlink(s.blinks, s.validator, s.publisher, s.metrics, s.logger))
		r.Get("/", handleListBlinks(s.blinks, s.logger))
		r.Get("/{blinkId}", handleGetBlink(s.blinks, s.logger))
		r.Get("/{blinkId}/qr", handleBlinkQR(s.blinks, s.cfg.BaseURL(), s.logger))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(corsMiddleware)
		r.Post("/signin", handleSignIn(s.auth, s.logger))
		r.Post("/signout", handleSignOut(s.logger))
		r.Get("/session", handleGetSession())
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.ServerAddr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.cfg.ServerAddr, "blockchain_id", s.blockchainID)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
