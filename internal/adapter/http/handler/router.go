package handler

import (
	"tag-wallet/internal/adapter/http/middleware"
	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc                  ports.AuthService
	TokenSvc                 ports.TokenService
	Terminal                 ports.Terminal
	Cart                     ports.CartService
	Catalog                  ports.Catalog
	Reader                   ports.TagDevice
	RateLimiter              ports.RateLimiter        // nil = rate limiting disabled
	LoginRateLimit           middleware.RateLimitRule // zero = default rule
	RechargeConfirmThreshold uint64
	HealthCheckers           []ports.HealthChecker
	AuditSvc                 ports.AuditService // nil = audit logging disabled
	Logger                   zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	if deps.LoginRateLimit.Limit > 0 && deps.LoginRateLimit.Window > 0 {
		rules["auth_login"] = deps.LoginRateLimit
	}
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1", middleware.NoStore())

	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl("auth_login"), authHandler.Login)

	authed := v1.Group("", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	supervisor := middleware.RequireRole(domain.RoleSupervisor)

	catalogHandler := NewCatalogHandler(deps.Catalog)
	authed.GET("/products", catalogHandler.ListProducts)

	sessionHandler := NewSessionHandler(deps.Terminal, deps.Cart, deps.RechargeConfirmThreshold)
	sessions := authed.Group("/sessions", rl("sessions"))
	{
		sessions.POST("/purchase", sessionHandler.ArmPurchase)
		sessions.POST("/recharge", sessionHandler.ArmRecharge)
		sessions.POST("/inspect", sessionHandler.ArmInspect)
		sessions.POST("/erase", supervisor, sessionHandler.ArmErase)
		sessions.POST("/issue", supervisor, sessionHandler.ArmIssue)
		sessions.DELETE("", sessionHandler.Disarm)
		sessions.GET("/current", sessionHandler.Current)
	}

	readerHandler := NewReaderHandler(deps.Terminal, deps.Reader)
	authed.POST("/reader/tap", readerHandler.Tap)

	return r
}
