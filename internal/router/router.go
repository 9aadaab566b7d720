package router

import (
	"tillsync/internal/config"
	"tillsync/internal/handler"
	"tillsync/internal/infra"
	"tillsync/internal/middleware"
	"tillsync/internal/repository"
	"tillsync/internal/service"
	"tillsync/internal/worker"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB. The flusher, puller
// and circuit breaker are built in main because their lifecycle outlives any
// request; the router only exposes their state.
func New(cfg *config.Config, db *gorm.DB, dispatcher *worker.Dispatcher, flusher *worker.Flusher, puller *worker.Puller, cb *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	queueRepo := repository.NewQueueRepository(db)
	cursorRepo := repository.NewCursorRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	cashRepo := repository.NewCashRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	userRepo := repository.NewUserRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	cashSvc := service.NewCashService(cashRepo, saleRepo, dispatcher, cfg.PointOfSaleID)
	saleSvc := service.NewSaleService(saleRepo, cashSvc, dispatcher)
	authSvc := service.NewAuthService(userRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cashH := handler.NewCashHandler(cashSvc)
	salesH := handler.NewSaleHandler(saleSvc)
	authH := handler.NewAuthHandler(authSvc)
	syncH := handler.NewSyncHandler(queueRepo, cursorRepo, flusher, puller, cb)
	catalogH := handler.NewCatalogHandler(catalogRepo)

	// ── Routes ───────────────────────────────────────────────────────────────
	// Everything binds to localhost; the only client is the terminal UI shell,
	// so there is no auth layer here. Supervisor PIN validation guards specific
	// actions, not the transport.

	r.GET("/health", handler.Health(db, queueRepo, flusher, cb))

	v1 := r.Group("/v1")
	{
		cash := v1.Group("/cash")
		{
			cash.POST("/open", cashH.Open)
			cash.POST("/movement", cashH.Movement)
			cash.POST("/close", cashH.Close)
			cash.POST("/:id/suspend", cashH.Suspend)
			cash.POST("/:id/resume", cashH.Resume)
			cash.POST("/transfer", cashH.Transfer)
			cash.GET("/active", cashH.Active)
			cash.GET("/:id/report", cashH.Report)
			cash.GET("/history", cashH.History)
		}

		v1.POST("/sales", salesH.Record)
		v1.GET("/sales/:id", salesH.Get)

		// PIN attempts are rate limited per IP; brute-forcing a 4-digit PIN
		// from the loopback interface is still worth slowing down.
		v1.POST("/auth/validate-pin", middleware.PinRateLimiter(), authH.ValidatePin)

		sync := v1.Group("/sync")
		{
			sync.GET("/status", syncH.Status)
			sync.GET("/failed", syncH.ListFailed)
			sync.POST("/failed/:id/retry", syncH.RetryFailed)
			sync.POST("/pull", syncH.Pull)
			sync.POST("/flush", syncH.Flush)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.GET("/products", catalogH.SearchProducts)
			catalog.GET("/products/barcode/:barcode", catalogH.ProductByBarcode)
			catalog.GET("/products/:id", catalogH.ProductByID)
			catalog.GET("/categories", catalogH.ListCategories)
			catalog.GET("/brands", catalogH.ListBrands)
			catalog.GET("/customers", catalogH.SearchCustomers)
		}
	}

	return r
}
