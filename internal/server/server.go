package server

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/tetebueno/dawarich/internal/area"
	"github.com/tetebueno/dawarich/internal/auth"
	"github.com/tetebueno/dawarich/internal/config"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/export"
	"github.com/tetebueno/dawarich/internal/logging"
	"github.com/tetebueno/dawarich/internal/mapview"
	"github.com/tetebueno/dawarich/internal/metrics"
	"github.com/tetebueno/dawarich/internal/notification"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/storage"
	"github.com/tetebueno/dawarich/internal/stream"
	"github.com/tetebueno/dawarich/internal/trip"
)

const localQueueCapacity = 256

// exportQueue is satisfied by both export.RedisQueue and export.LocalQueue.
type exportQueue interface {
	export.Enqueuer
	Run(ctx context.Context, workers int, proc export.Processor)
}

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Stream  *stream.Hub
	Store   storage.Store
	Exports *export.Service

	queue exportQueue
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, store storage.Store) *Server {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	app.Use(requestLogger())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Store:  store,
	}
	if redisClient != nil {
		s.queue = export.NewRedisQueue(redisClient)
	} else {
		s.queue = export.NewLocalQueue(localQueueCapacity)
	}

	registerRoutes(s)
	return s
}

// StartWorkers runs the export workers until ctx is cancelled. With the
// in-process queue, exports left in created by a previous run have no job
// anywhere and are failed first.
func (s *Server) StartWorkers(ctx context.Context) {
	if _, local := s.queue.(*export.LocalQueue); local && s.DB != nil {
		if _, err := s.Exports.FailPending(ctx); err != nil {
			logging.Error().Err(err).Msg("fail pending exports")
		}
	}
	go s.queue.Run(ctx, s.Cfg.ExportWorkers, s.Exports)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	var q db.Querier = s.DB

	authSvc := auth.NewService(s.Cfg.JWTSecret, q, auth.Settings{
		MetersBetweenRoutes:  s.Cfg.MetersBetweenRoutes,
		MinutesBetweenRoutes: s.Cfg.MinutesBetweenRoutes,
		FogOfWarMeters:       s.Cfg.FogOfWarMeters,
	})
	authMiddleware := auth.Middleware(authSvc)

	pointSvc := point.NewService(q, s.Stream)
	notificationSvc := notification.NewService(q)
	areaSvc := area.NewService(q)
	tripSvc := trip.NewService(q, pointSvc)

	s.Exports = export.NewService(q, pointSvc, authSvc, notificationSvc, s.Store)
	s.Exports.SetQueue(s.queue)

	api := s.App.Group("/api/v1")
	auth.RegisterRoutes(api.Group("/auth"), authSvc)
	auth.RegisterSettingsRoutes(api, authSvc, authMiddleware)
	point.RegisterRoutes(api.Group("/points"), pointSvc, authMiddleware)
	export.RegisterRoutes(api.Group("/exports"), s.Exports, authMiddleware)
	notification.RegisterRoutes(api.Group("/notifications"), notificationSvc, authMiddleware)
	trip.RegisterRoutes(api.Group("/trips"), tripSvc, authSvc, authMiddleware)
	area.RegisterRoutes(api.Group("/areas"), areaSvc, authMiddleware)
	mapview.RegisterRoutes(api.Group("/map"), mapview.Sources{
		Points:   pointSvc,
		Areas:    areaSvc,
		Settings: authSvc,
	}, authMiddleware)
	stream.RegisterRoutes(api.Group("/stream"), s.Stream, authMiddleware)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logging.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// requestLogger logs every request and feeds the HTTP metrics.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		route := c.Route().Path

		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())

		logging.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request")
		return nil
	}
}
