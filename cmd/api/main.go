package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"flashsale/internal/admission"
	"flashsale/internal/config"
	"flashsale/internal/consumer"
	"flashsale/internal/database"
	"flashsale/internal/handler"
	"flashsale/internal/middleware"
	"flashsale/internal/monitor"
	"flashsale/internal/redis"
	"flashsale/internal/repository"
	"flashsale/internal/service/order"
	"flashsale/internal/service/stock"
	"flashsale/pkg/limiter"
	"flashsale/pkg/log"
	"flashsale/pkg/queue"
	"flashsale/pkg/snowflake"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	if err := log.Init(log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.WithError(err).Fatal("Failed to initialize logger")
	}

	if err := database.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	if err := database.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}

	if err := redis.Init(cfg); err != nil {
		log.WithError(err).Fatal("Failed to initialize redis")
	}
	defer redis.Close()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.GetDB()
	redisClient := redis.GetClient()

	idGenerator, err := snowflake.NewIDGenerator(1)
	if err != nil {
		log.WithError(err).Fatal("Failed to create ID generator")
	}

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	allocationRepo := repository.NewAllocationLogRepository(db)

	messageQueue := queue.NewMemoryQueue(nil)
	defer messageQueue.Close()

	orderService := order.NewOrderService(db, orderRepo, productRepo,
		redisClient, idGenerator, cfg.FlashSale.DirectLockTTL)

	engine, err := admission.NewEngine(cfg.FlashSale, idGenerator, messageQueue, orderService)
	if err != nil {
		log.WithError(err).Fatal("Failed to create admission engine")
	}
	engine.Start()
	defer engine.Stop()

	stockService := stock.NewStockService(productRepo, engine)

	metrics := monitor.NewMetricsCollector()

	tracer, err := monitor.NewTracer(cfg.Tracing)
	if err != nil {
		log.WithError(err).Fatal("Failed to create tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(ctx)
	}()

	allocationConsumer := consumer.NewAllocationConsumer(messageQueue, allocationRepo, metrics)
	allocationConsumer.Start()
	defer allocationConsumer.Stop()

	router := setupRouter(cfg, engine, orderService, stockService, productRepo, redisClient, metrics, tracer)

	server := &http.Server{
		Addr:           cfg.Server.GetAddr(),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"addr": server.Addr,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}

func setupRouter(
	cfg *config.Config,
	engine *admission.Engine,
	orderService order.OrderService,
	stockService stock.StockService,
	productRepo repository.ProductRepository,
	redisClient goredis.Cmdable,
	metrics *monitor.MetricsCollector,
	tracer *monitor.Tracer,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	if cfg.Security.CORS.Enabled {
		router.Use(middleware.CORS(cfg.Security.CORS.AllowOrigins))
	}
	if cfg.Tracing.Enabled {
		router.Use(tracer.GinMiddleware())
	}
	if cfg.Metrics.Enabled {
		router.Use(metrics.GinMiddleware())
		router.GET(cfg.Metrics.Path, metrics.Handler())
	}
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimitByIP(cfg.RateLimit.PerIP.RPS, cfg.RateLimit.PerIP.Burst))
	}

	router.GET("/health", healthCheck)

	flashSaleHandler := handler.NewFlashSaleHandler(engine)
	orderHandler := handler.NewOrderHandler(orderService)
	productHandler := handler.NewProductHandler(productRepo, stockService)

	validator := middleware.NewJWTValidator(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)
	joinLimiter := limiter.NewSlidingWindowLimiter(redisClient,
		cfg.RateLimit.JoinPerUser.Limit, cfg.RateLimit.JoinPerUser.Window)

	v1 := router.Group("/api/v1")
	{
		// Public catalogue
		v1.GET("/products", productHandler.List)
		v1.GET("/products/:product_id", productHandler.Get)

		protected := v1.Group("")
		protected.Use(middleware.Auth(validator))
		{
			fs := protected.Group("/flashsale")
			{
				fs.POST("/products/:product_id/join", middleware.RateLimitByUser(joinLimiter), flashSaleHandler.Join)
				// Body-form alias for clients that post {"product_id": n}.
				fs.POST("/join", middleware.RateLimitByUser(joinLimiter), flashSaleHandler.Join)
				fs.GET("/tickets/:ticket_id", flashSaleHandler.Status)
				fs.GET("/products/:product_id/winners", flashSaleHandler.Winners)
				fs.GET("/products/:product_id/queue", flashSaleHandler.Queue)
			}

			protected.POST("/orders", orderHandler.Create)
			protected.GET("/orders", orderHandler.List)
			protected.GET("/orders/:order_no", orderHandler.Get)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				admin.POST("/products", productHandler.Create)
				admin.POST("/products/:product_id/open", productHandler.OpenSale)
				admin.POST("/products/:product_id/close", productHandler.CloseSale)
				admin.POST("/products/:product_id/restock", productHandler.Restock)
			}
		}
	}

	return router
}

func healthCheck(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if err := database.Health(); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := redis.Health(); err != nil {
		status["redis"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, status)
}
