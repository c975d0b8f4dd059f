package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/capdev-portal-api/api/swagger"
	"github.com/noah-isme/capdev-portal-api/internal/handler"
	"github.com/noah-isme/capdev-portal-api/internal/middleware"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/service"
	"github.com/noah-isme/capdev-portal-api/pkg/config"
	"github.com/noah-isme/capdev-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/capdev-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/capdev-portal-api/pkg/middleware/requestid"
)

type services struct {
	auth          *service.AuthService
	requests      *service.RequestService
	lifecycle     *service.LifecycleService
	offers        *service.OfferService
	statuses      *service.StatusService
	subscriptions *service.SubscriptionService
	preferences   *service.PreferenceService
	opportunities *service.OpportunityService
	documents     *service.DocumentService
	exports       *service.ExportService
	metrics       *service.MetricsService
	audit         middleware.AuditWriter
	readiness     map[string]handler.ReadinessCheck
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(svc.metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready(svc.readiness))
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := strings.TrimRight(cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := handler.NewAuthHandler(svc.auth)
	api.POST("/auth/login", auth.Login)
	api.POST("/auth/refresh", auth.Refresh)

	documents := handler.NewDocumentHandler(svc.documents)
	// signed tokens authorise downloads on their own
	api.GET("/documents/:id/download", middleware.Audit(svc.audit, logr, models.AuditActionDocumentDownload, "document"), documents.Download)

	statuses := handler.NewStatusHandler(svc.statuses)
	api.GET("/statuses", statuses.List)

	secured := api.Group("")
	secured.Use(middleware.JWT(svc.auth))
	secured.POST("/auth/logout", auth.Logout)
	secured.GET("/auth/me", auth.Me)

	requests := handler.NewRequestHandler(svc.requests, svc.lifecycle, svc.exports)
	secured.POST("/requests", requests.Create)
	secured.GET("/requests", requests.List)
	secured.GET("/requests/export", middleware.RequireRoles(models.RoleAdministrator), requests.Export)
	secured.GET("/requests/:id", requests.Get)
	secured.PUT("/requests/:id", requests.Update)
	secured.DELETE("/requests/:id", requests.Delete)
	secured.POST("/requests/:id/transitions", requests.Transition)

	offers := handler.NewOfferHandler(svc.lifecycle, svc.offers)
	secured.POST("/requests/:id/offers", middleware.RequireRoles(models.RolePartner), offers.Create)
	secured.GET("/requests/:id/offers", offers.List)
	secured.POST("/offers/:id/accept", offers.Accept)
	secured.POST("/offers/:id/reject", offers.Reject)
	secured.PATCH("/offers/:id/status", middleware.RequireRoles(models.RolePartner), offers.ChangeStatus)

	subs := handler.NewSubscriptionHandler(svc.subscriptions, svc.preferences)
	subAudit := middleware.Audit(svc.audit, logr, models.AuditActionSubscription, "request")
	secured.POST("/requests/:id/subscriptions", subAudit, subs.Subscribe)
	secured.DELETE("/requests/:id/subscriptions", subAudit, subs.Unsubscribe)
	secured.GET("/requests/:id/subscriptions", subs.ListSubscribers)
	prefAudit := middleware.Audit(svc.audit, logr, models.AuditActionPreference, "preference")
	secured.POST("/preferences", prefAudit, subs.CreatePreference)
	secured.GET("/preferences", subs.ListPreferences)
	secured.PATCH("/preferences/:id", prefAudit, subs.UpdatePreference)
	secured.DELETE("/preferences/:id", prefAudit, subs.DeletePreference)

	secured.POST("/documents", documents.Upload)
	secured.GET("/documents", documents.List)
	secured.GET("/documents/:id/url", documents.URL)
	secured.DELETE("/documents/:id", documents.Delete)

	opportunities := handler.NewOpportunityHandler(svc.opportunities)
	secured.POST("/opportunities", middleware.RequireRoles(models.RolePartner), opportunities.Create)
	secured.GET("/opportunities", opportunities.List)
	secured.GET("/opportunities/:id", opportunities.Get)
	secured.PATCH("/opportunities/:id/status", middleware.RequireRoles(models.RoleAdministrator), opportunities.UpdateStatus)

	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdministrator), metricsHandler.Snapshot)

	return r
}
