package server

import (
	"context"
	"net/http"
	"time"

	"github.com/basangdata/ingestd/internal/activity"
	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	"github.com/basangdata/ingestd/internal/batch"
	"github.com/basangdata/ingestd/internal/clock"
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/inference"
	"github.com/basangdata/ingestd/internal/ingest"
	ingestdomain "github.com/basangdata/ingestd/internal/ingest/domain"
	"github.com/basangdata/ingestd/internal/metrics"
	"github.com/basangdata/ingestd/internal/quota"
	quotadomain "github.com/basangdata/ingestd/internal/quota/domain"
	"github.com/basangdata/ingestd/internal/ratelimit"
	"github.com/basangdata/ingestd/internal/sink"
	"github.com/basangdata/ingestd/internal/tier"
	"github.com/basangdata/ingestd/internal/user"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	metrics.Module,
	tier.Module,
	user.Module,
	activity.Module,
	quota.Module,
	inference.Module,
	sink.Module,
	batch.Module,
	ratelimit.Module,
	ingest.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	policy    *tier.Policy
	ingestsvc ingestdomain.Service
	usersvc   userdomain.Service
	ledger    quotadomain.Ledger
	records   activitydomain.Repository
	limiter   *ratelimit.SubmitLimiter
	clk       clock.Clock
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Policy    *tier.Policy
	Ingestsvc ingestdomain.Service
	Usersvc   userdomain.Service
	Ledger    quotadomain.Ledger
	Records   activitydomain.Repository
	Limiter   *ratelimit.SubmitLimiter `optional:"true"`
	Clock     clock.Clock
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		policy:    p.Policy,
		ingestsvc: p.Ingestsvc,
		usersvc:   p.Usersvc,
		ledger:    p.Ledger,
		records:   p.Records,
		limiter:   p.Limiter,
		clk:       p.Clock,
	}
	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	{
		submit := v1.Group("", s.SubmitRateLimit())
		{
			submit.POST("/units", s.SubmitUnit)
			submit.POST("/documents", s.SubmitDocument)
		}

		v1.GET("/usage/:external_id", s.GetUsage)
		v1.GET("/tiers", s.ListTiers)

		batchGroup := v1.Group("/batch")
		{
			batchGroup.POST("/open", s.OpenBatch)
			batchGroup.POST("/close", s.CloseBatch)
			batchGroup.POST("/discard", s.DiscardBatch)
		}

		admin := v1.Group("/admin", s.AdminRequired())
		{
			admin.GET("/stats", s.AdminStats)
			admin.PUT("/users/:external_id/tier", s.SetUserTier)
			admin.PUT("/users/:external_id/sink", s.SetUserSink)
			admin.PUT("/users/:external_id/template", s.SetUserTemplate)
			admin.PUT("/users/:external_id/prompt", s.SetUserPrompt)
		}
	}
}
