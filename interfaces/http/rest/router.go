// Package rest exposes the cosmos store over HTTP.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"cosmos-backend/application/commands/bus"
	querybus "cosmos-backend/application/queries/bus"
	"cosmos-backend/interfaces/http/rest/handlers"
	"cosmos-backend/interfaces/http/rest/middleware"
	pkgerrors "cosmos-backend/pkg/errors"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the router.
type Options struct {
	AllowedOrigins []string
	CORSMaxAge     int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	PackageSuffix  string
	Debug          bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	store      Pinger
	metrics    middleware.HTTPObserver
	metricsH   http.Handler
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance. metrics and metricsHandler may
// be nil.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	store Pinger,
	metrics middleware.HTTPObserver,
	metricsHandler http.Handler,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		store:      store,
		metrics:    metrics,
		metricsH:   metricsHandler,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	errs := pkgerrors.NewErrorHandler(rt.logger, rt.opts.Debug)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errs.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         rt.opts.CORSMaxAge,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck(errs))
	if rt.metricsH != nil {
		router.Handle("/metrics", rt.metricsH)
	}

	worlds := handlers.NewWorldHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	timelines := handlers.NewTimelineHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	archive := handlers.NewArchiveHandler(rt.commandBus, rt.queryBus, errs, rt.logger)
	shares := handlers.NewShareHandler(rt.commandBus, rt.queryBus, rt.opts.PackageSuffix, errs, rt.logger)

	router.Group(func(r chi.Router) {
		if rt.opts.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rt.opts.RequestTimeout))
		}
		if rt.opts.MaxBodyBytes > 0 {
			r.Use(chimiddleware.RequestSize(rt.opts.MaxBodyBytes))
		}

		r.Route("/api/cosmos", func(r chi.Router) {
			r.Post("/worlds", worlds.CreateWorld)
			r.Get("/worlds", worlds.ListWorlds)
			r.Get("/storage", worlds.Storage)
			r.Route("/world/{id}", func(r chi.Router) {
				r.Get("/", worlds.GetWorld)
				r.Put("/map", worlds.UpdateMap)
				r.Get("/timelines", worlds.ListTimelines)
				r.Post("/collapse", worlds.Collapse)
				r.Get("/eternal-seed.zip", worlds.EternalSeed)
			})
			r.Post("/branch", timelines.Branch)
			r.Get("/archive", archive.Search)
			r.Post("/reflection/{id}", archive.Reflect)
		})

		r.Route("/api/open-cosmos", func(r chi.Router) {
			r.Post("/share", shares.Share)
			r.Get("/shares", shares.ListShares)
			r.Get("/download/{name}", shares.Download)
			r.Post("/import", shares.Import)
			r.Post("/revoke/{name}", shares.Revoke)
			r.Get("/merges", shares.ListMerges)
			r.Get("/network", shares.Network)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errs.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errs.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(errs *pkgerrors.ErrorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.store.Ping(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			errs.HandleStatus(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}
