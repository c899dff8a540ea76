package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bookshelf-app/server/config"
	"github.com/bookshelf-app/server/internal/auth"
	"github.com/bookshelf-app/server/internal/db"
	"github.com/bookshelf-app/server/internal/handlers"
	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/mq"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/internal/storage"
	"github.com/bookshelf-app/server/internal/store"
	"github.com/bookshelf-app/server/internal/views"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	requestTimeout = 60 * time.Second
	sentryFlush    = 2 * time.Second
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
	covers     *storage.Storage
	log        *logger.Logger
	sentry     bool
}

// New wires every dependency from cfg. A missing session secret is fatal.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*Server, error) {
	sessions, err := auth.NewSessions(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return nil, errors.New("SESSION_SECRET is required")
	}

	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	gormDB, err := db.OpenGorm(dbConn)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	covers, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init cover storage: %w", err)
	}
	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		if covers != nil {
			_ = covers.Close()
		}
		_ = dbConn.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var coverStore services.CoverStore
	if covers != nil {
		coverStore = covers
	} else {
		log.Info("cover storage disabled")
	}
	var notifier services.Notifier
	if broker != nil {
		notifier = mq.NewInvalidator(broker, cfg.MQ.Channel, log)
	} else {
		log.Info("invalidation notices disabled")
	}

	userService := services.NewUserService(
		store.NewUserRepository(dbConn),
		auth.NewPasswordHasher(cfg.Password.Cost),
		sessions,
	)
	bookService := services.NewBookService(store.NewBookRepository(gormDB), coverStore, notifier, log)
	genreService := services.NewGenreService(store.NewGenreRepository(gormDB), notifier)

	sentryEnabled := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Error("sentry init failed", "error", err)
		} else {
			sentryEnabled = true
		}
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)
	// Sentry sits inside Recoverer so a repanic still reaches it.
	if sentryEnabled {
		router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	router.Use(
		requestLogger(log),
		middleware.Timeout(requestTimeout),
		handlers.NewGuard(sessions, cfg.Session.CookieName).Middleware,
	)
	Routes(router, Handlers{
		Auth: handlers.NewAuthHandler(userService, renderer, handlers.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
		}, log),
		Books:     handlers.NewBookHandler(bookService, log),
		Genres:    handlers.NewGenreHandler(genreService, log),
		Dashboard: handlers.NewDashboardHandler(bookService, log),
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
		covers:     covers,
		log:        log,
		sentry:     sentryEnabled,
	}, nil
}

// Handlers groups the HTTP handlers mounted by Routes.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Books     *handlers.BookHandler
	Genres    *handlers.GenreHandler
	Dashboard *handlers.DashboardHandler
}

// Routes mounts every endpoint on r.
func Routes(r chi.Router, h Handlers) {
	r.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(r, h.Auth)
	r.Get("/dash", h.Dashboard.Dashboard)
	r.Route("/books", func(r chi.Router) {
		handlers.BookRouter(r, h.Books)
	})
	r.Route("/genres", func(r chi.Router) {
		handlers.GenreRouter(r, h.Genres)
	})
	r.Get("/covers/{bookID}/{name}", h.Books.ServeCover)
}

// Handler exposes the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.covers != nil {
		_ = s.covers.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.sentry {
		sentry.Flush(sentryFlush)
	}
	return err
}
