package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evanofslack/go-dealer/internal/auth"
	"github.com/evanofslack/go-dealer/internal/cards"
	"github.com/evanofslack/go-dealer/internal/chain"
	"github.com/evanofslack/go-dealer/internal/config"
	"github.com/evanofslack/go-dealer/internal/database"
	"github.com/evanofslack/go-dealer/internal/handlers"
	custommiddleware "github.com/evanofslack/go-dealer/internal/middleware"
	"github.com/evanofslack/go-dealer/internal/services"
	"github.com/evanofslack/go-dealer/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
)

// DealerServer owns every service instance and its lifecycle. Nothing is a
// package-level singleton, so tests can run independent servers.
type DealerServer struct {
	config          *config.Config
	db              *database.DB
	redisClient     *redis.Client
	memoryNonces    *auth.MemoryNonceStore
	sessions        *auth.SessionManager
	sessionGuard    *auth.SessionMiddleware
	authService     *services.AuthService
	dealerService   *services.DealerService
	ownerGateway    services.OwnerGateway
	listener        *services.HandStartedListener
	chainClient     *chain.Client
	holeCards       store.HoleCardStore
	sweeper         *store.Sweeper
	apiRateLimiter  *custommiddleware.RateLimiter
	authRateLimiter *custommiddleware.RateLimiter
	server          *http.Server
}

func NewDealerServer() (*DealerServer, error) {
	cfg := config.Load()
	return NewDealerServerWithConfig(cfg)
}

func NewDealerServerWithConfig(cfg *config.Config) (*DealerServer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &DealerServer{config: cfg}

	// Hole card storage
	switch cfg.StorageMode {
	case "memory":
		s.holeCards = store.NewMemoryStore(cfg.MaxSeats)
	case "file":
		fileStore, err := store.NewFileStore(cfg.HoleCardDir, cfg.MaxSeats)
		if err != nil {
			return nil, fmt.Errorf("failed to create file store: %w", err)
		}
		s.holeCards = fileStore
	case "postgres":
		db, err := database.NewConnection(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		pgStore, err := store.NewPostgresStore(db, cfg.MaxSeats)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		s.holeCards = pgStore
	}

	s.sweeper = store.NewSweeper(s.holeCards, cfg.RetentionMaxAge, cfg.RetentionSweep)

	// Nonce challenges
	var nonces auth.NonceStore
	switch cfg.NonceStore {
	case "memory":
		memStore := auth.NewMemoryNonceStore(cfg.NonceTTL)
		s.memoryNonces = memStore
		nonces = memStore
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		s.redisClient = redis.NewClient(opts)
		if err := s.redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		nonces = auth.NewRedisNonceStore(s.redisClient, cfg.NonceTTL)
	}

	// Sessions and auth
	s.sessions = auth.NewSessionManager(cfg.SessionSecret, "go-dealer", cfg.SessionTTL)
	s.sessionGuard = auth.NewSessionMiddleware(s.sessions)
	s.authService = services.NewAuthService(nonces, s.sessions)

	// Dealing
	generator := cards.NewGenerator(cfg.Environment != "production")
	s.dealerService = services.NewDealerService(generator, s.holeCards, cfg.MaxSeats)

	// Chain collaborator is optional; owner routes degrade to 503 without it.
	if cfg.ChainConfigured() {
		client, err := chain.NewClient(cfg.RPCURL, cfg.TableContract)
		if err != nil {
			return nil, fmt.Errorf("failed to create chain client: %w", err)
		}
		s.chainClient = client

		if err := s.checkMaxSeats(client); err != nil {
			return nil, err
		}

		s.ownerGateway = services.NewOwnerGateway(client, s.holeCards)
		s.listener = services.NewHandStartedListener(client, s.dealerService, cfg.TableID, cfg.PollInterval)
	} else {
		slog.Warn("No chain collaborator configured, owner routes disabled")
		s.ownerGateway = services.UnavailableGateway{}
	}

	s.apiRateLimiter = custommiddleware.NewAPIRateLimiter()
	s.authRateLimiter = custommiddleware.NewAuthRateLimiter()

	return s, nil
}

// checkMaxSeats cross-checks the configured seat count against the
// contract's own constant; dealing with the wrong count would desync
// commitments from the table.
func (s *DealerServer) checkMaxSeats(client *chain.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chainMax, err := client.MaxSeats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read MAX_SEATS from chain: %w", err)
	}
	if int(chainMax) != s.config.MaxSeats {
		return fmt.Errorf("MAX_SEATS mismatch: configured %d, chain reports %d", s.config.MaxSeats, chainMax)
	}
	return nil
}

func (s *DealerServer) Start() error {
	router := s.setupRouter()

	s.server = &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: router,
	}

	if s.memoryNonces != nil {
		s.memoryNonces.Start(s.config.NonceTTL)
	}
	s.sweeper.Start()
	if s.listener != nil {
		s.listener.Start()
	}

	go func() {
		slog.Info("Starting dealer server", "port", s.config.Port, "storage", s.config.StorageMode)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	return s.Shutdown()
}

func (s *DealerServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}

	if s.listener != nil {
		s.listener.Stop()
	}
	s.sweeper.Stop()
	if s.memoryNonces != nil {
		s.memoryNonces.Stop()
	}

	if s.chainClient != nil {
		s.chainClient.Close()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}

	s.apiRateLimiter.Close()
	s.authRateLimiter.Close()

	slog.Info("Server shutdown complete")
	return nil
}

func (s *DealerServer) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.apiRateLimiter.RateLimit)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure properly for production
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(
		s.config.StorageMode,
		s.config.NonceStore,
		s.chainClient != nil,
		s.listenerRunning,
	)
	r.Get("/health", healthHandler.Health)

	authHandler := handlers.NewAuthHandler(s.authService)
	r.Group(func(r chi.Router) {
		r.Use(s.authRateLimiter.RateLimit)
		r.Mount("/auth", authHandler.Routes())
	})

	dealerHandler := handlers.NewDealerHandler(s.dealerService, s.config.AdminAPIKeyHash)
	r.Mount("/dealer", dealerHandler.Routes())

	ownerHandler := handlers.NewOwnerHandler(s.ownerGateway)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionGuard.RequireSession)
		r.Mount("/owner", ownerHandler.Routes())
	})

	return r
}

func (s *DealerServer) listenerRunning() bool {
	if s.listener == nil {
		return false
	}
	return s.listener.Watching()
}

// Router exposes the assembled handler tree for httptest-based suites.
func (s *DealerServer) Router() http.Handler {
	return s.setupRouter()
}
