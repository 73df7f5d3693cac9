package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-routine-api/api/swagger"
	"github.com/noah-isme/sma-routine-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-routine-api/internal/middleware"
	"github.com/noah-isme/sma-routine-api/internal/models"
	"github.com/noah-isme/sma-routine-api/internal/repository"
	"github.com/noah-isme/sma-routine-api/internal/service"
	"github.com/noah-isme/sma-routine-api/pkg/cache"
	"github.com/noah-isme/sma-routine-api/pkg/config"
	"github.com/noah-isme/sma-routine-api/pkg/database"
	"github.com/noah-isme/sma-routine-api/pkg/jobs"
	"github.com/noah-isme/sma-routine-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-routine-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-routine-api/pkg/middleware/requestid"
)

// @title SMA Routine Scheduling API
// @version 1.0.0
// @description Class routine scheduling with conflict detection and substitute allocation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	cacheEnabled := cfg.Cache.Enabled
	if cacheEnabled {
		redisClient, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			cacheEnabled = false
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheEnabled)

	routineRepo := repository.NewRoutineRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	substitutionRepo := repository.NewSubstitutionRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.Deliver, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		DeadLetter: notificationSvc.DeadLetter,
		Logger:     logr,
	})
	notificationSvc.AttachQueue(notificationQueue)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	notificationQueue.Start(rootCtx)
	defer notificationQueue.Stop()

	conflictSvc := service.NewConflictService(routineRepo, conflictRepo, metricsSvc, notificationSvc, auditSvc, nil, logr,
		service.ConflictServiceConfig{Deduplicate: cfg.Conflicts.Deduplicate})
	routineSvc := service.NewRoutineService(routineRepo, timeSlotRepo, conflictSvc, conflictRepo, db, cacheSvc, auditSvc, metricsSvc, nil, logr)
	calendarSvc := service.NewCalendarService(calendarRepo, cacheSvc, auditSvc, nil, logr)
	substituteSvc := service.NewSubstituteService(substitutionRepo, teacherRepo, routineRepo, timeSlotRepo, db, cacheSvc, notificationSvc, auditSvc, nil, logr)
	substituteSvc.AttachCalendar(calendarSvc)
	timeSlotSvc := service.NewTimeSlotService(timeSlotRepo, cacheSvc, auditSvc, nil, logr)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	routineHandler := handler.NewRoutineHandler(routineSvc)
	conflictHandler := handler.NewConflictHandler(conflictSvc)
	substituteHandler := handler.NewSubstituteHandler(substituteSvc)
	timeSlotHandler := handler.NewTimeSlotHandler(timeSlotSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, conflictSvc)
	activityHandler := handler.NewActivityHandler(auditSvc, notificationSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	readers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RolePlanner, models.RoleTeacher)
	writers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RolePlanner)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))

	api.GET("/metrics/summary", internalmiddleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	routines := api.Group("/routines")
	routines.GET("", readers, routineHandler.List)
	routines.GET("/status/:status", readers, routineHandler.ListByStatus)
	routines.GET("/:id", readers, routineHandler.Get)
	routines.GET("/:id/conflicts", readers, conflictHandler.ListByRoutine)
	routines.GET("/:id/substitutes", readers, substituteHandler.ListByRoutine)
	routines.POST("", writers, routineHandler.Create)
	routines.PUT("/:id", writers, routineHandler.Update)
	routines.DELETE("/:id", writers, routineHandler.Delete)

	api.GET("/classes/:classId/routines", readers, routineHandler.ListByClass)
	api.GET("/teachers/:teacherId/routines", readers, routineHandler.ListByTeacher)
	api.GET("/teachers/:teacherId/substitutes", readers, substituteHandler.History)

	conflicts := api.Group("/conflicts")
	conflicts.POST("/check", writers, conflictHandler.Check)
	conflicts.GET("", readers, conflictHandler.ListUnresolved)
	conflicts.GET("/summary", readers, conflictHandler.Summary)
	conflicts.GET("/:id", readers, conflictHandler.Get)
	conflicts.PATCH("/:id/status", writers, conflictHandler.UpdateStatus)

	substitutes := api.Group("/substitutes")
	substitutes.GET("/candidates", writers, substituteHandler.Candidates)
	substitutes.POST("", writers, substituteHandler.Allocate)
	substitutes.GET("/:id", readers, substituteHandler.Get)
	substitutes.PATCH("/:id/status", writers, substituteHandler.UpdateStatus)
	substitutes.DELETE("/:id", writers, substituteHandler.Remove)

	timeSlots := api.Group("/time-slots")
	timeSlots.GET("", readers, timeSlotHandler.List)
	timeSlots.GET("/:id", readers, timeSlotHandler.Get)
	timeSlots.POST("", writers, timeSlotHandler.Create)
	timeSlots.PUT("/:id", writers, timeSlotHandler.Update)
	timeSlots.DELETE("/:id", writers, timeSlotHandler.Delete)

	calendar := api.Group("/calendar")
	calendar.GET("/days/:date", readers, calendarHandler.Day)
	calendar.GET("/holidays", readers, calendarHandler.ListHolidays)
	calendar.GET("/holidays/:id", readers, calendarHandler.GetHoliday)
	calendar.POST("/holidays", writers, calendarHandler.CreateHoliday)
	calendar.PUT("/holidays/:id", writers, calendarHandler.UpdateHoliday)
	calendar.DELETE("/holidays/:id", writers, calendarHandler.DeleteHoliday)
	calendar.GET("/exam-periods", readers, calendarHandler.ListExamPeriods)
	calendar.GET("/exam-periods/:id", readers, calendarHandler.GetExamPeriod)
	calendar.POST("/exam-periods", writers, calendarHandler.CreateExamPeriod)
	calendar.PUT("/exam-periods/:id", writers, calendarHandler.UpdateExamPeriod)
	calendar.DELETE("/exam-periods/:id", writers, calendarHandler.DeleteExamPeriod)

	api.GET("/audit/:resource/:id", writers, activityHandler.History)
	notifications := api.Group("/notifications")
	notifications.GET("", readers, activityHandler.Notifications)
	notifications.GET("/unread", readers, activityHandler.Unread)
	notifications.GET("/unread/count", readers, activityHandler.UnreadCount)
	notifications.PUT("/:id/read", readers, activityHandler.MarkRead)
	notifications.DELETE("/:id", writers, activityHandler.DeleteNotification)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
