package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shelfsnap/apiserver/config"
	"github.com/shelfsnap/apiserver/internal/db"
	"github.com/shelfsnap/apiserver/internal/events"
	"github.com/shelfsnap/apiserver/internal/handlers"
	"github.com/shelfsnap/apiserver/internal/services"
	"github.com/shelfsnap/apiserver/internal/storage"
	"github.com/shelfsnap/apiserver/internal/store"
	"github.com/shelfsnap/apiserver/internal/vision"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *events.Publisher
}

// New constructs a Server with basic middleware and defaults. The storage
// backend is selected here, once per process; it is never re-selected per
// request.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objectStorage, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	publisher, err := events.NewFromConfig(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var analyzer vision.Analyzer
	if cfg.Gemini.APIKey != "" {
		gemini, err := vision.NewGeminiAnalyzer(cfg.Gemini)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		analyzer = gemini
	} else {
		slog.Warn("GEMINI_API_KEY not set; uploads will record placeholder attributes")
	}

	itemRepo := store.NewItemRepository(dbConn)
	itemService := services.NewItemService(itemRepo, objectStorage, analyzer, publisher)

	objectHandler := handlers.NewObjectHandler(objectStorage)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/items", func(r chi.Router) {
		handlers.ItemRouter(r, itemService)
	})
	router.Post("/api/objects/upload", objectHandler.CreateUploadURL)
	router.Route("/objects", func(r chi.Router) {
		r.Get("/*", objectHandler.ServeObject)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.events != nil {
		_ = s.events.Close()
	}
	return s.httpServer.Close()
}
