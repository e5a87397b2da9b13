package main

import (
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/liveshop/backend/config"
	"github.com/liveshop/backend/internal/auth"
	"github.com/liveshop/backend/internal/cache"
	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/handlers"
	"github.com/liveshop/backend/internal/live"
	"github.com/liveshop/backend/internal/middleware"
	"github.com/liveshop/backend/internal/models"
	"github.com/liveshop/backend/internal/notify"
	"github.com/liveshop/backend/internal/repository"
	"github.com/liveshop/backend/internal/video"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	broadcastRepo := repository.NewBroadcastRepository(db)
	planRepo := repository.NewPlanRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	followRepo := repository.NewFollowRepository(db)

	// services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	broker := video.NewBroker(cfg.Video.APIKey, cfg.Video.SecretKey, cfg.Video.BaseURL, cfg.Video.Timeout)
	notifier := notify.NewNotifier(cfg.Notify.GatewayURL, cfg.Notify.APIKey, cfg.Notify.SenderLine)

	// websocket hub fed by redis pub/sub
	hub := live.NewHub()
	go hub.Run()
	go hub.PumpEvents(redisClient.SubscribeLiveEvents())

	// handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService)
	productHandler := handlers.NewProductHandler(productRepo)
	liveHandler := handlers.NewLiveHandler(broadcastRepo, productRepo, planRepo, redisClient, broker, notifier, followRepo, userRepo, orderRepo)
	orderHandler := handlers.NewOrderHandler(orderRepo, productRepo, userRepo, redisClient)
	planHandler := handlers.NewPlanHandler(planRepo)
	viewerHandler := handlers.NewViewerHandler(broadcastRepo, redisClient, broker)
	followHandler := handlers.NewFollowHandler(followRepo)

	orderLimiter := middleware.NewRateLimiter(float64(cfg.API.RateLimitOrdersPerSec), cfg.API.RateLimitOrdersPerSec*2)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// public
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/plans", planHandler.List)

	authed := router.Group("/api")
	authed.Use(middleware.AuthMiddleware(jwtService))
	{
		authed.GET("/auth/me", authHandler.Me)

		// viewer side
		authed.GET("/live/:id/join", viewerHandler.Join)
		authed.POST("/orders", orderLimiter.Middleware(), orderHandler.Place)
		authed.GET("/orders", orderHandler.ListMine)
		authed.POST("/orders/:id/cancel", orderHandler.Cancel)
		authed.POST("/sellers/:id/follow", followHandler.Follow)
		authed.DELETE("/sellers/:id/follow", followHandler.Unfollow)

		seller := authed.Group("")
		seller.Use(middleware.RequireRole(models.RoleSeller))
		{
			seller.POST("/products", productHandler.Create)
			seller.GET("/products", productHandler.List)
			seller.GET("/products/:id", productHandler.Get)
			seller.DELETE("/products/:id", productHandler.Delete)

			seller.GET("/broadcasts", liveHandler.List)
			seller.POST("/broadcasts", liveHandler.Create)
			seller.PUT("/broadcasts", liveHandler.Update)
			seller.DELETE("/broadcasts", liveHandler.Delete)
			seller.POST("/broadcasts/:id/start", liveHandler.Start)
			seller.POST("/broadcasts/:id/end", liveHandler.End)
			seller.PATCH("/broadcasts/:id/hls", liveHandler.SetHLS)

			seller.GET("/live/:id", liveHandler.GetSession)
			seller.POST("/live/products", liveHandler.AddProduct)
			seller.DELETE("/live/products", liveHandler.RemoveProduct)
			seller.PATCH("/live/current", liveHandler.SetCurrent)
			seller.PATCH("/live/announcement", liveHandler.SetAnnouncement)
			seller.PATCH("/live/discount", liveHandler.SetDiscount)

			seller.POST("/plans/purchase", planHandler.Purchase)
			seller.GET("/plans/status", planHandler.Status)

			seller.GET("/seller/orders", orderHandler.ListForSeller)
			seller.PATCH("/seller/orders/:id/status", orderHandler.Fulfil)
			seller.GET("/seller/returns", orderHandler.ListReturns)
			seller.PATCH("/seller/returns/:id", orderHandler.ResolveReturn)

			seller.GET("/followers", followHandler.Followers)
		}
	}

	// websocket viewers attach per broadcast
	router.GET("/ws/live/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.AbortWithStatus(400)
			return
		}
		live.ServeWS(hub, c.Writer, c.Request, id)
	})

	log.Printf("server listening on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
