package handler

import (
	"net/http"
	"time"

	"settlement-gateway/internal/adapter/http/middleware"
	"settlement-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MetricsProvider observes requests and exposes the scrape endpoint.
type MetricsProvider interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AdminSvc        ports.AdminService
	BusinessSvc     ports.BusinessService
	PaymentSvc      ports.PaymentService
	HistorySvc      ports.HistoryService
	ConsentVerifier ports.ConsentVerifier
	NonceStore      ports.NonceStore
	NonceTTL        time.Duration
	RateLimitStore  ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	AuditSvc        ports.AuditService // nil = audit logging disabled
	Metrics         MetricsProvider    // nil = metrics disabled
	MetricsPath     string
	OpenAPISpec     []byte // nil = docs routes answer 404
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.MaxBodySize(1 << 20))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	docs := NewDocsHandler(deps.OpenAPISpec)
	r.GET("/swagger", docs.UI)
	r.GET(specPath, docs.Spec)

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	consent := middleware.ConsentAuth(deps.ConsentVerifier, deps.NonceStore, deps.NonceTTL, deps.Logger)

	v1 := r.Group("/api/v1")

	adminHandler := NewAdminHandler(deps.AdminSvc)
	admin := v1.Group("/admin")
	{
		admin.GET("", rl(middleware.GroupRead), adminHandler.State)
		admin.POST("/initialize", consent, rl(middleware.GroupAdmin), adminHandler.Initialize)
	}

	businessHandler := NewBusinessHandler(deps.BusinessSvc)
	businesses := v1.Group("/businesses")
	{
		businesses.POST("", consent, rl(middleware.GroupBusinesses), businessHandler.Register)
		businesses.GET("/:name", rl(middleware.GroupRead), businessHandler.Get)
		businesses.PUT("/:name/status", consent, rl(middleware.GroupBusinesses), businessHandler.UpdateStatus)
		businesses.PUT("/:name/fee", consent, rl(middleware.GroupBusinesses), businessHandler.UpdateFee)
	}

	paymentHandler := NewPaymentHandler(deps.PaymentSvc)
	payments := v1.Group("/payments")
	{
		payments.POST("", consent, rl(middleware.GroupPaymentsCreate), paymentHandler.Create)
		payments.GET("", rl(middleware.GroupRead), paymentHandler.List)
		payments.GET("/counter", rl(middleware.GroupRead), paymentHandler.Counter)
		payments.GET("/:id", rl(middleware.GroupRead), paymentHandler.Get)
		payments.POST("/:id/execute", consent, rl(middleware.GroupPaymentsExecute), paymentHandler.Execute)
		payments.POST("/:id/cancel", consent, rl(middleware.GroupPaymentsCancel), paymentHandler.Cancel)
	}

	historyHandler := NewHistoryHandler(deps.HistorySvc)
	v1.GET("/history/:address", rl(middleware.GroupRead), historyHandler.Get)

	return r
}
