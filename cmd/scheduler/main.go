package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/abdoElHodaky/sasscolmng-sub001/internal/constraints"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/handler"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/middleware"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/repository"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/service"
	"github.com/abdoElHodaky/sasscolmng-sub001/internal/solver"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/cache"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/config"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/database"
	"github.com/abdoElHodaky/sasscolmng-sub001/pkg/logger"
	reqidmiddleware "github.com/abdoElHodaky/sasscolmng-sub001/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	resourceRepo := repository.NewResourceRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	jobRepo := repository.NewSolveJobRepository(redisClient, logr)

	hardEngine := constraints.NewHardEngine(constraints.HardEngineConfig{
		DefaultAvailabilityStart: cfg.Engine.DefaultAvailabilityStart,
		DefaultAvailabilityEnd:   cfg.Engine.DefaultAvailabilityEnd,
	})
	softEngine := constraints.NewSoftEngine(constraints.SoftEngineConfig{
		MaxSessionsPerDay: cfg.Engine.MaxSessionsPerTeacherDay,
	})

	externalSolver := solver.NewExternalProcessSolver(solver.ExternalConfig{
		BinaryPath: cfg.Solver.BinaryPath,
		WorkDir:    cfg.Solver.WorkDir,
		Timeout:    cfg.Solver.MaxSolvingTime,
		Logger:     logr,
	})
	heuristicSolver := solver.NewHeuristicSolver(solver.HeuristicConfig{
		DefaultAvailabilityStart: cfg.Engine.DefaultAvailabilityStart,
		DefaultAvailabilityEnd:   cfg.Engine.DefaultAvailabilityEnd,
		Logger:                   logr,
	})

	metricsSvc := service.NewMetricsService()
	solverSvc := service.NewSolverService(externalSolver, heuristicSolver, hardEngine, softEngine, validate, logr, service.SolverServiceConfig{
		DefaultTimeout:  cfg.Solver.MaxSolvingTime,
		FallbackEnabled: cfg.Solver.FallbackEnabled,
	})
	jobSvc := service.NewSolveJobService(jobRepo, scheduleRepo, solverSvc, metricsSvc, validate, logr, service.SolveJobServiceConfig{
		Workers:       cfg.Queue.Workers,
		BufferSize:    cfg.Queue.BufferSize,
		MaxAttempts:   cfg.Queue.MaxAttempts,
		BackoffBase:   cfg.Queue.BackoffBase,
		PruneAge:      cfg.Queue.PruneAge,
		PruneInterval: cfg.Queue.PruneInterval,
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, resourceRepo, metricsSvc, validate, logr)

	if err := jobSvc.Start(ctx); err != nil {
		logr.Sugar().Fatalw("failed to start job workers", "error", err)
	}
	defer jobSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	solveHandler := handler.NewSolveHandler(solverSvc)
	jobHandler := handler.NewJobHandler(jobSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/solve", solveHandler.Solve)
		api.POST("/solve/validate", solveHandler.Validate)
		api.GET("/solve/capabilities", solveHandler.Capabilities)

		api.POST("/jobs", jobHandler.Enqueue)
		api.GET("/jobs/:id", jobHandler.Status)
		api.DELETE("/jobs/:id", jobHandler.Cancel)
		api.GET("/queue/stats", jobHandler.Stats)

		api.POST("/schedules", scheduleHandler.Create)
		api.GET("/schedules/:id", scheduleHandler.Get)
		api.GET("/schedules/:id/sessions", scheduleHandler.Sessions)
		api.POST("/schedules/:id/publish", scheduleHandler.Publish)
		api.POST("/schedules/:id/archive", scheduleHandler.Archive)

		api.GET("/schools/:schoolId/resources", scheduleHandler.Resources)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
