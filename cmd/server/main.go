// Package main runs the community platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nexus-community/backend/config"
	"github.com/nexus-community/backend/internal/analytics"
	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/internal/channels"
	"github.com/nexus-community/backend/internal/communities"
	"github.com/nexus-community/backend/internal/donations"
	"github.com/nexus-community/backend/internal/events"
	"github.com/nexus-community/backend/internal/media"
	"github.com/nexus-community/backend/internal/members"
	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/internal/posts"
	"github.com/nexus-community/backend/internal/rbac"
	"github.com/nexus-community/backend/internal/roles"
	"github.com/nexus-community/backend/internal/subscriptions"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/database"
	"github.com/nexus-community/backend/pkg/messaging"
	"github.com/nexus-community/backend/pkg/response"
	"github.com/nexus-community/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cacheStore := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cache.Options{
		DefaultTTL:   time.Duration(cfg.Cache.DefaultTTL) * time.Second,
		AnalyticsTTL: time.Duration(cfg.Cache.AnalyticsTTL) * time.Second,
	}, logger)
	defer cacheStore.Close()
	keys := cache.NewKeys(cfg.Cache.Prefix)

	publisher := messaging.New(cfg.Broker, logger)
	if err := publisher.Connect(ctx); err != nil {
		logger.Warn("broker connect", zap.Error(err))
	}
	defer publisher.Close()

	var s3Client *storage.S3
	if cfg.S3.AccessKeyID != "" || cfg.S3.Endpoint != "" {
		s3Client, err = storage.NewS3(ctx, storage.Config{
			Endpoint:             cfg.S3.Endpoint,
			Region:               cfg.S3.Region,
			AccessKeyID:          cfg.S3.AccessKeyID,
			SecretAccessKey:      cfg.S3.SecretAccessKey,
			MediaBucket:          cfg.S3.MediaBucket,
			PresignExpireMinutes: cfg.S3.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("media storage disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret)

	// Repositories
	communityRepo := communities.NewRepository(pool)
	memberRepo := members.NewRepository(pool)
	roleRepo := roles.NewRepository(pool)
	channelRepo := channels.NewRepository(pool)
	postRepo := posts.NewRepository(pool)
	eventRepo := events.NewRepository(pool)
	subscriptionRepo := subscriptions.NewRepository(pool)
	donationRepo := donations.NewRepository(pool)

	// Authorization always reads committed membership state.
	resolver := rbac.NewResolver(memberRepo, logger)

	// Services
	communityService := communities.NewService(communityRepo, roleRepo, memberRepo, channelRepo,
		cacheStore, keys, publisher, logger)
	memberService := members.NewService(memberRepo, communityRepo, roleRepo,
		cacheStore, keys, publisher, logger)
	roleService := roles.NewService(roleRepo, cacheStore, keys, logger)
	channelService := channels.NewService(channelRepo, cacheStore, keys, logger)
	postService := posts.NewService(postRepo, communityRepo, channelRepo,
		cacheStore, keys, publisher, logger)
	eventService := events.NewService(eventRepo, cacheStore, keys, publisher, logger)
	subscriptionService := subscriptions.NewService(subscriptionRepo, cacheStore, keys, publisher, logger)
	donationService := donations.NewService(donationRepo, cacheStore, keys, publisher, logger)
	analyticsService := analytics.NewService(communityRepo, memberRepo, eventRepo,
		subscriptionRepo, donationRepo, cacheStore, keys, logger)

	// Handlers
	communityHandler := communities.NewHandler(communityService)
	memberHandler := members.NewHandler(memberService)
	roleHandler := roles.NewHandler(roleService)
	channelHandler := channels.NewHandler(channelService)
	postHandler := posts.NewHandler(postService)
	eventHandler := events.NewHandler(eventService)
	subscriptionHandler := subscriptions.NewHandler(subscriptionService)
	donationHandler := donations.NewHandler(donationService)
	analyticsHandler := analytics.NewHandler(analyticsService)
	mediaHandler := media.NewHandler(s3Client, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Communities
		api.GET("/communities", communityHandler.List)
		api.POST("/communities",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityCreate),
			communityHandler.Create)
		api.GET("/communities/:id",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			communityHandler.Get)
		api.PATCH("/communities/:id",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityUpdate),
			communityHandler.Update)
		api.DELETE("/communities/:id",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityDelete),
			communityHandler.Delete)
		api.GET("/communities/:id/analytics",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermAnalyticsView),
			analyticsHandler.CommunityOverview)

		// Members
		api.GET("/communities/:id/members",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			memberHandler.List)
		api.POST("/communities/:id/members", memberHandler.Join)
		api.DELETE("/communities/:id/membership", memberHandler.Leave)
		api.PATCH("/communities/:id/members/:userID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermMemberManage),
			memberHandler.Update)
		api.DELETE("/communities/:id/members/:userID",
			rbac.Require(resolver, rbac.ModeAny, rbac.PermMemberKick, rbac.PermMemberBan),
			memberHandler.Remove)

		// Roles
		api.GET("/communities/:id/roles",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			roleHandler.List)
		api.POST("/communities/:id/roles",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermRoleManage),
			roleHandler.Create)
		api.PATCH("/communities/:id/roles/:roleID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermRoleManage),
			roleHandler.Update)
		api.DELETE("/communities/:id/roles/:roleID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermRoleManage),
			roleHandler.Delete)

		// Channels
		api.GET("/communities/:id/channels",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			channelHandler.List)
		api.POST("/communities/:id/channels",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermChannelManage),
			channelHandler.Create)
		api.PATCH("/communities/:id/channels/:channelID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermChannelManage),
			channelHandler.Update)
		api.DELETE("/communities/:id/channels/:channelID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermChannelManage),
			channelHandler.Delete)

		// Posts
		api.GET("/communities/:id/posts",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			postHandler.List)
		api.GET("/communities/:id/posts/:postID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			postHandler.Get)
		api.POST("/communities/:id/posts",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermPostCreate),
			postHandler.Create)
		api.PATCH("/communities/:id/posts/:postID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermPostUpdate),
			postHandler.Update)
		api.POST("/communities/:id/posts/:postID/moderate",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermPostModerate),
			postHandler.Moderate)
		api.DELETE("/communities/:id/posts/:postID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermPostDelete),
			postHandler.Delete)

		// Events
		api.GET("/communities/:id/events",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			eventHandler.List)
		api.GET("/communities/:id/events/:eventID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			eventHandler.Get)
		api.POST("/communities/:id/events",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermEventManage),
			eventHandler.Create)
		api.PATCH("/communities/:id/events/:eventID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermEventManage),
			eventHandler.Update)
		api.DELETE("/communities/:id/events/:eventID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermEventManage),
			eventHandler.Delete)

		// Subscription levels and subscriptions
		api.GET("/communities/:id/subscription-levels",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			subscriptionHandler.ListLevels)
		api.POST("/communities/:id/subscription-levels",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermSubscriptionManage),
			subscriptionHandler.CreateLevel)
		api.PATCH("/communities/:id/subscription-levels/:levelID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermSubscriptionManage),
			subscriptionHandler.UpdateLevel)
		api.DELETE("/communities/:id/subscription-levels/:levelID",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermSubscriptionManage),
			subscriptionHandler.DeleteLevel)
		api.POST("/communities/:id/subscriptions",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			subscriptionHandler.Subscribe)
		api.DELETE("/communities/:id/subscriptions/me", subscriptionHandler.Cancel)
		api.GET("/me/subscriptions", subscriptionHandler.Mine)

		// Donations
		api.GET("/communities/:id/donations",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermDonationView),
			donationHandler.List)
		api.GET("/communities/:id/top-donors",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			donationHandler.TopDonors)
		api.POST("/communities/:id/donations",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityView),
			donationHandler.Create)
		api.POST("/communities/:id/donations/:donationID/refund",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermDonationView),
			donationHandler.Refund)

		// Media
		api.POST("/communities/:id/media/presign",
			rbac.Require(resolver, rbac.ModeAll, rbac.PermCommunityUpdate),
			mediaHandler.Presign)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
