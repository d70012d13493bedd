package api

import (
	"context"
	"time"

	"menu-gen-assistant/internal/api/handlers/health"
	recipeHandler "menu-gen-assistant/internal/api/handlers/recipe"
	"menu-gen-assistant/internal/api/middleware"
	"menu-gen-assistant/internal/core/ratelimit"
	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies 路由使用的服務
type Dependencies struct {
	Pipeline recipeHandler.Runner
	History  recipeHandler.HistoryLister // 可為 nil
	Limiter  ratelimit.Limiter           // nil 表示不限流
	Health   *health.Handler
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(requestid.New())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(requestContext(cfg.Server.RequestTimeout))

	// 健康檢查路由
	if deps.Health != nil {
		router.GET("/health", deps.Health.HealthCheck)
		router.GET("/ready", deps.Health.ReadinessCheck)
		router.GET("/live", deps.Health.LivenessCheck)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := recipeHandler.NewHandler(deps.Pipeline, deps.History)

	generate := []gin.HandlerFunc{middleware.CallerIdentity(cfg.Auth.JWTSecret)}
	if deps.Limiter != nil {
		generate = append(generate, middleware.RateLimit(deps.Limiter))
	}
	generate = append(generate, handler.HandleGenerate)

	api := router.Group("/api/v1")
	{
		api.POST("/recipe/generate", generate...)
		api.GET("/history", middleware.CallerIdentity(cfg.Auth.JWTSecret), handler.HandleHistory)
	}

	// 舊版路徑
	router.POST("/generate_recipe", generate...)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", deps.Limiter != nil),
		zap.Bool("history_enabled", deps.History != nil),
		zap.Bool("auth_enabled", cfg.Auth.JWTSecret != ""),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}

// requestContext 設置請求超時並把請求 ID 帶入 context
func requestContext(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := common.WithRequestID(c.Request.Context(), requestid.Get(c))
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			status, body := common.ErrorStatus(common.ErrGatewayTimeout)
			c.AbortWithStatusJSON(status, body)
		}
	}
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
