// Package gateway assembles every resource group behind one gin engine.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/manifest-festivals/manifest/internal/config"
	"github.com/manifest-festivals/manifest/internal/logging"
	"github.com/manifest-festivals/manifest/internal/metrics"
	"github.com/manifest-festivals/manifest/internal/redis"
	"github.com/manifest-festivals/manifest/internal/services/catalog"
	"github.com/manifest-festivals/manifest/internal/services/festival"
	"github.com/manifest-festivals/manifest/internal/services/report"
	"github.com/manifest-festivals/manifest/internal/services/review"
	"github.com/manifest-festivals/manifest/internal/services/ticket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	// Redis is optional; without it redemption relies on the conditional
	// update alone and the report is not cached.
	Redis       *redis.Client
	Notifier    festival.Notifier
	Recommender festival.Recommender
}

type Service struct {
	db    *gorm.DB
	redis *redis.Client

	Catalog  *catalog.Service
	Festival *festival.Service
	Reviews  *review.Service
	Tickets  *ticket.Service
	Report   *report.Service
}

func NewService(d Deps) *Service {
	cfg := d.Config

	ticketOpts := ticket.Options{LockTTL: cfg.RedeemLockTTL}
	reportOpts := report.Options{CacheTTL: cfg.ReportCacheTTL}
	festivalOpts := festival.Options{
		Notifier:       d.Notifier,
		Recommender:    d.Recommender,
		RecipientRole:  cfg.NonAdminRole,
		RecommendLimit: cfg.RecommendLimit,
	}
	var reports report.Invalidator
	if d.Redis != nil {
		ticketOpts.Locker = d.Redis
		ticketOpts.Reports = d.Redis
		reportOpts.Cache = d.Redis
		festivalOpts.Reports = d.Redis
		reports = d.Redis
	}

	return &Service{
		db:       d.DB,
		redis:    d.Redis,
		Catalog:  catalog.NewService(d.DB),
		Festival: festival.NewService(d.DB, festivalOpts),
		Reviews:  review.NewService(d.DB, reports),
		Tickets:  ticket.NewService(d.DB, ticketOpts),
		Report:   report.NewService(d.DB, reportOpts),
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	s.Catalog.SetupRoutes(r)
	s.Festival.SetupRoutes(r)
	review.SetupRoutes(r, s.Reviews)
	s.Tickets.SetupRoutes(r)
	s.Report.SetupRoutes(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", s.HealthCheck)
}

// NewRouter builds the engine with recovery, request logging, metrics and CORS.
func NewRouter(s *Service, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	s.SetupRoutes(r)
	return r
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logging.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logging.Error()
		case status >= http.StatusBadRequest:
			event = logging.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

func (s *Service) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	healthy := true

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		healthy = false
	}
	if s.redis != nil {
		checks["redis"] = "ok"
		// Redis is optional; a failure degrades but does not fail the check.
		if err := s.redis.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"service": "manifest-api",
		"checks":  checks,
	})
}
