package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menu-gen-assistant/internal/api"
	"menu-gen-assistant/internal/api/handlers/health"
	"menu-gen-assistant/internal/core/ai/cache"
	"menu-gen-assistant/internal/core/ai/imagegen"
	aiService "menu-gen-assistant/internal/core/ai/service"
	"menu-gen-assistant/internal/core/image"
	"menu-gen-assistant/internal/core/ratelimit"
	"menu-gen-assistant/internal/core/recipe"
	"menu-gen-assistant/internal/core/service"
	"menu-gen-assistant/internal/infrastructure/config"
	"menu-gen-assistant/internal/infrastructure/database"
	"menu-gen-assistant/internal/infrastructure/storage"
	"menu-gen-assistant/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile, cfg.LogMode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("gemini_api_key", config.MaskAPIKey(cfg.Gemini.APIKey)),
		zap.String("gemini_model", cfg.Gemini.Model),
		zap.Bool("youtube_enabled", cfg.YouTube.APIKey != ""),
		zap.Bool("image_search_enabled", cfg.ImageSearch.APIKey != "" && cfg.ImageSearch.EngineID != ""),
		zap.Bool("image_gen_enabled", cfg.ImageGen.Enabled),
		zap.Bool("database_enabled", cfg.DatabaseEnabled()),
		zap.Bool("redis_enabled", cfg.RedisEnabled()),
	)

	ctx := context.Background()

	// Redis（限流與快取共用）
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			common.LogFatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// 初始化快取
	var (
		replies      aiService.ReplyCache
		cacheManager *cache.Manager
	)
	if cfg.Cache.Enabled {
		if cfg.Cache.Backend == "redis" {
			replies = cache.NewRedisStore(redisClient, cfg.Cache)
		} else {
			cacheManager = cache.NewManager(cfg.Cache)
			defer cacheManager.Close()
			replies = cacheManager
		}
	}

	healthHandler := health.NewHandler(cfg.App.Version, cacheManager)
	if redisClient != nil {
		healthHandler.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	gemini := service.NewGeminiService(cfg.Gemini)
	ai := aiService.NewService(gemini, replies)
	images := image.NewService(cfg.Image)

	deps := recipe.Dependencies{
		Fetcher: images,
		Vision:  ai,
		Text:    ai,
	}
	if yt := service.NewYouTubeService(cfg.YouTube); yt != nil {
		deps.Videos = yt
	}
	if search := service.NewImageSearchService(cfg.ImageSearch); search != nil {
		deps.Images = search
	}

	// 圖片生成（上傳至 S3）
	var generator recipe.ImageGenerator
	if cfg.ImageGen.Enabled {
		store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			common.LogFatal("Failed to initialize S3 storage", zap.Error(err))
		}
		gen, err := imagegen.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.ImageGen, store)
		if err != nil {
			common.LogFatal("Failed to initialize image generator", zap.Error(err))
		}
		generator = gen
	}
	deps.Resolver = recipe.NewImageResolver(images, generator, cfg.Image.MaxProbeBytes, cfg.Image.PlaceholderURL)

	// 歷史紀錄
	var history *database.HistoryStore
	if cfg.DatabaseEnabled() {
		db, err := database.Open(cfg.Database)
		if err != nil {
			common.LogFatal("Failed to open database", zap.Error(err))
		}
		defer closeDatabase(db)
		history = database.NewHistoryStore(db)
		deps.History = history
		healthHandler.AddCheck("database", func(ctx context.Context) error {
			return database.Ping(ctx, db)
		})
	}

	limiter, err := ratelimit.New(cfg.RateLimit, redisClient)
	if err != nil {
		common.LogFatal("Failed to initialize rate limiter", zap.Error(err))
	}

	routerDeps := api.Dependencies{
		Pipeline: recipe.NewPipeline(deps),
		Limiter:  limiter,
		Health:   healthHandler,
	}
	if history != nil {
		routerDeps.History = history
	}
	router := api.SetupRouter(cfg, routerDeps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}

func closeDatabase(db *gorm.DB) {
	if err := database.Close(db); err != nil {
		common.LogWarn("關閉資料庫失敗", zap.Error(err))
	}
}
