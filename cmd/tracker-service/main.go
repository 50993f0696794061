package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algotrack/internal/common/cache"
	"algotrack/internal/common/db"
	commonmw "algotrack/internal/common/http/middleware"
	"algotrack/internal/common/mq"
	"algotrack/internal/common/storage"
	"algotrack/pkg/utils/logger"

	authcontroller "algotrack/internal/auth/controller"
	authrepo "algotrack/internal/auth/repository"
	authservice "algotrack/internal/auth/service"
	problemcontroller "algotrack/internal/problem/controller"
	problemrepo "algotrack/internal/problem/repository"
	problemservice "algotrack/internal/problem/service"
	profilecontroller "algotrack/internal/profile/controller"
	profilerepo "algotrack/internal/profile/repository"
	profileservice "algotrack/internal/profile/service"
	statscontroller "algotrack/internal/stats/controller"
	statsservice "algotrack/internal/stats/service"
	suggestcontroller "algotrack/internal/suggest/controller"
	suggestservice "algotrack/internal/suggest/service"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/tracker_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()
	dbProvider := db.NewManager(mysqlDB)

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	var mqClient mq.MessageQueue
	if len(appCfg.Kafka.Brokers) > 0 {
		mqClient, err = mq.NewKafkaQueue(&appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = mqClient.Close()
		}()
	}

	var objStorage storage.ObjectStorage
	if appCfg.MinIO.Endpoint != "" {
		objStorage, err = storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio failed", zap.Error(err))
			return
		}
	}

	userRepo := authrepo.NewUserRepository(dbProvider, redisCache)
	tokenRepo := authrepo.NewTokenRepository(dbProvider, redisCache)
	authService := authservice.NewAuthService(dbProvider, userRepo, tokenRepo, redisCache, authservice.AuthServiceConfig{
		JWTSecret:       []byte(appCfg.Auth.JWTSecret),
		JWTIssuer:       appCfg.Auth.JWTIssuer,
		AccessTokenTTL:  appCfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: appCfg.Auth.RefreshTokenTTL,
		LoginFailTTL:    appCfg.Auth.LoginFailTTL,
		LoginFailLimit:  appCfg.Auth.LoginFailLimit,
	})

	problemRepo := problemrepo.NewProblemRepository(dbProvider)
	var eventPublisher *problemservice.ProblemEventPublisher
	if mqClient != nil {
		eventPublisher = problemservice.NewProblemEventPublisher(mqClient, appCfg.Events.Topic)
	}
	problemService := problemservice.NewProblemService(problemRepo, eventPublisher)

	statsService := statsservice.NewStatsService(problemRepo, redisCache)

	profileRepo := profilerepo.NewProfileRepository(dbProvider, redisCache)
	profileService := profileservice.NewProfileService(profileRepo, userRepo, problemRepo, objStorage, profileservice.ProfileServiceConfig{
		AvatarBucket:   appCfg.Avatar.Bucket,
		MaxAvatarBytes: appCfg.Avatar.MaxBytes,
		PresignTTL:     appCfg.Avatar.PresignTTL,
	})

	var llm llms.Model
	if appCfg.LLM.BaseURL != "" || appCfg.LLM.APIKey != "" {
		llm, err = newLLMClient(appCfg.LLM)
		if err != nil {
			logger.Error(context.Background(), "init llm client failed", zap.Error(err))
			return
		}
	}
	suggestService := suggestservice.NewSuggestService(llm, redisCache)

	if mqClient != nil {
		consumer := profileservice.NewRecomputeConsumer(mqClient, profileService, statsService, appCfg.Events.Topic, appCfg.Events.ConsumerGroup)
		if err := consumer.Register(context.Background()); err != nil {
			logger.Error(context.Background(), "subscribe record events failed", zap.Error(err))
			return
		}
		if err := mqClient.Start(); err != nil {
			logger.Error(context.Background(), "start consumers failed", zap.Error(err))
			return
		}
	}

	httpServer := buildHTTPServer(appCfg.Server, services{
		auth:    authService,
		problem: problemService,
		stats:   statsService,
		profile: profileService,
		suggest: suggestService,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "tracker http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	if mqClient != nil {
		_ = mqClient.Stop()
	}
}

type services struct {
	auth    *authservice.AuthService
	problem *problemservice.ProblemService
	stats   *statsservice.StatsService
	profile *profileservice.ProfileService
	suggest *suggestservice.SuggestService
}

func buildHTTPServer(cfg ServerConfig, svcs services) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	authController := authcontroller.NewAuthController(svcs.auth)
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.POST("/refresh", authController.Refresh)
	auth.POST("/logout", authController.Logout)

	authorized := api.Group("")
	authorized.Use(commonmw.AuthMiddleware(svcs.auth))

	problems := authorized.Group("/problems")
	problemController := problemcontroller.NewProblemController(svcs.problem)
	problems.POST("", problemController.Create)
	problems.GET("", problemController.List)
	problems.GET("/export", problemController.Export)
	problems.GET("/:id", problemController.Get)
	problems.PUT("/:id", problemController.Update)
	problems.DELETE("/:id", problemController.Delete)

	stats := authorized.Group("/stats")
	statsController := statscontroller.NewStatsController(svcs.stats)
	stats.GET("/summary", statsController.Summary)
	stats.GET("/heatmap", statsController.Heatmap)
	stats.GET("/groups", statsController.Groups)
	stats.GET("/activity", statsController.Activity)

	profileController := profilecontroller.NewProfileController(svcs.profile)
	authorized.GET("/profile", profileController.Get)
	authorized.PUT("/profile", profileController.Update)
	authorized.POST("/profile/avatar", profileController.UploadAvatar)
	authorized.GET("/dashboard", profileController.Dashboard)

	suggestController := suggestcontroller.NewSuggestController(svcs.suggest)
	authorized.GET("/suggestions", suggestController.Suggestions)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func newLLMClient(cfg LLMConfig) (llms.Model, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local endpoints.
		apiKey = "placeholder"
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	return openai.New(opts...)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
