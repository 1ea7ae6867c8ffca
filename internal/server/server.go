package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/partnerdesk/internal/audit"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/invoice"
	invoicedomain "github.com/smallbiznis/partnerdesk/internal/invoice/domain"
	"github.com/smallbiznis/partnerdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/partnerdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/partnerdesk/internal/observability/tracing"
	"github.com/smallbiznis/partnerdesk/internal/partner"
	partnerdomain "github.com/smallbiznis/partnerdesk/internal/partner/domain"
	"github.com/smallbiznis/partnerdesk/internal/providers"
	"github.com/smallbiznis/partnerdesk/internal/ratelimit"
	"github.com/smallbiznis/partnerdesk/internal/settlement"
	settlementdomain "github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	partner.Module,
	settlement.Module,
	providers.Module,
	invoice.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	decimal.MarshalJSONWithoutQuotes = true

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())
	r.Use(AuditContext())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine            *gin.Engine
	cfg               config.Config
	partnerSvc        partnerdomain.Service
	settlementSvc     settlementdomain.Service
	invoiceSvc        invoicedomain.Service
	auditSvc          auditdomain.Service
	settlementLimiter *ratelimit.SettlementLimiter
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	PartnerSvc        partnerdomain.Service
	SettlementSvc     settlementdomain.Service
	InvoiceSvc        invoicedomain.Service
	AuditSvc          auditdomain.Service
	SettlementLimiter *ratelimit.SettlementLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		partnerSvc:        p.PartnerSvc,
		settlementSvc:     p.SettlementSvc,
		invoiceSvc:        p.InvoiceSvc,
		auditSvc:          p.AuditSvc,
		settlementLimiter: p.SettlementLimiter,
	}

	svc.registerPartnerRoutes()
	svc.registerAuditRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPartnerRoutes() {
	partners := s.engine.Group("/partners")

	// -------- Settlement --------
	partners.POST("/close-month", s.CloseMonth)
	partners.POST("/:id/invoices", s.SettlePartnerInvoice)
	partners.POST("/:id/invoices/preview", s.PreviewPartnerInvoice)

	// -------- Invoices --------
	partners.GET("/:id/invoices", s.ListPartnerInvoices)
	partners.GET("/:id/invoices/:invoiceId/pdf", s.DownloadPartnerInvoicePDF)

	// -------- Portal --------
	partners.GET("/:id/clients", s.ListPartnerClients)
	partners.GET("/:id/interactions", s.ListPartnerInteractions)
	partners.POST("/:id/interactions", s.CreatePartnerInteraction)

	partners.GET("/:id", s.GetPartnerOverview)
}

func (s *Server) registerAuditRoutes() {
	s.engine.GET("/audit-logs", s.ListAuditLogs)
}
