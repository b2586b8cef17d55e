package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/library-catalog-api/api/swagger"
	"github.com/noah-isme/library-catalog-api/internal/middleware"
	"github.com/noah-isme/library-catalog-api/internal/models"
	"github.com/noah-isme/library-catalog-api/internal/service"
	"github.com/noah-isme/library-catalog-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/library-catalog-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/library-catalog-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth    *AuthHandler
	Books   *BookHandler
	Rentals *RentalHandler
	Users   *UserHandler
	Metrics *MetricsHandler
}

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	APIPrefix      string
	StoreTimeout   time.Duration
	AllowedOrigins []string
	Docs           bool
}

// NewRouter builds the gin engine with the shared middleware chain and all routes.
func NewRouter(h Handlers, sessions middleware.SessionValidator, metrics *service.MetricsService, log *zap.Logger, cfg RouterConfig) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Timeout(cfg.StoreTimeout))
	api.GET("/health", h.Metrics.Health)

	auth := api.Group("/auth")
	auth.POST("/register", middleware.Audit(log, "user.register"), h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/validate", h.Auth.Validate)
	auth.POST("/logout", h.Auth.Logout)

	books := api.Group("/books")
	books.GET("", h.Books.List)
	books.GET("/:id", h.Books.Get)

	session := middleware.Session(sessions)
	books.POST("", session, middleware.Audit(log, "book.create"), h.Books.Create)
	books.POST("/import-sheets", session, middleware.RequireStaff(), middleware.Audit(log, "book.import"), h.Books.ImportSheets)
	books.POST("/:id/checkout", session, middleware.RequireUserTypes(models.UserTypeStudent), middleware.Audit(log, "book.checkout"), h.Books.Checkout)
	books.POST("/:id/return", session, middleware.Audit(log, "book.return"), h.Books.Return)

	rentals := api.Group("/rentals", session, middleware.RequireStaff())
	rentals.GET("", h.Rentals.List)
	rentals.GET("/export", h.Rentals.Export)

	users := api.Group("/users", session, middleware.RequireUserTypes(models.UserTypeAdmin))
	users.GET("", h.Users.List)

	return r
}
