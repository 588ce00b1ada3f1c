package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/retailbridge_backend/config"
	"github.com/mmdatafocus/retailbridge_backend/dispatch"
	"github.com/mmdatafocus/retailbridge_backend/erpclient"
	"github.com/mmdatafocus/retailbridge_backend/feedsync"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
	"github.com/mmdatafocus/retailbridge_backend/utils"
	"github.com/mmdatafocus/retailbridge_backend/warehouse"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("RETAIL_BRIDGE_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	refClient, err := refdata.NewClient()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "refdata"}).Fatal(err)
	}
	erpCli, err := erpclient.NewClient()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "erpclient"}).Fatal(err)
	}

	resolver := refdata.NewResolver(refClient, logger, config.GetSyncTuning())
	whTracker := warehouse.NewTracker(warehouse.NewGormStore(db), erpCli, resolver, logger)
	worker := feedsync.NewWorker(db, logger, resolver, whTracker)
	builder := dispatch.NewPayloadBuilder(db, resolver)
	dispatchStore := dispatch.NewGormStore(db)
	tracker := dispatch.NewTracker(dispatchStore, erpCli, dispatch.NewRedisLocker(config.GetRedisLock()), logger)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")

	r.Use(cors.New(corsConfig))
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	// API endpoints (retail feed sync)
	r.POST("/api/retail/sync", feedsync.TriggerSyncHandler(worker))
	r.GET("/api/retail/sync-runs", feedsync.SyncHistoryHandler(worker))
	r.GET("/api/retail/sync-runs/:id", feedsync.SyncRunDetailHandler(worker))
	r.POST("/api/retail/sync-runs/:id/retry", feedsync.RetrySyncRunHandler(worker))
	r.POST("/api/retail/resync-unresolved", feedsync.ResyncUnresolvedHandler(worker))

	// Invoice dispatch
	r.POST("/api/dispatch/batch", dispatch.BatchDispatchHandler(builder, tracker))
	r.POST("/api/dispatch/:docCode", dispatch.DispatchHandler(builder, tracker))
	r.GET("/api/dispatch/:docCode", dispatch.StatusHandler(dispatchStore))

	// Warehouse postings
	r.POST("/api/warehouse/retry-failed", warehouse.RetryFailedHandler(db, whTracker))
	r.POST("/api/warehouse/:docCode", warehouse.ProcessHandler(db, whTracker))

	// Pub/Sub push endpoint for sync worker.
	r.POST("/pubsub/retail-sync", feedsync.PubSubPushHandler(worker))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
