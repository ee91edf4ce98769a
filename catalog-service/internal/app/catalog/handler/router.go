package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
)

const serviceName = "catalog-service"

// SetupRoutes настраивает все маршруты приложения с использованием Gin
// rateLimit может быть nil, тогда лимит не применяется
func SetupRoutes(
	catalogHandler *CatalogHandler,
	reviewHandler *ReviewHandler,
	authMiddleware *AuthMiddleware,
	rateLimit gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	if rateLimit != nil {
		api.Use(rateLimit)
	}

	api.GET("/exchange-rate", catalogHandler.GetExchangeRate)

	products := api.Group("/products")
	{
		products.GET("", catalogHandler.FindProducts)
		products.GET("/popular", reviewHandler.GetPopular)
		products.GET("/:id", catalogHandler.GetProduct)
		products.GET("/:id/reviews", reviewHandler.GetReviews)

		// Изменение каталога - только для менеджеров и администраторов
		writers := products.Group("")
		if authMiddleware.Enabled() {
			writers.Use(authMiddleware.Authenticate(), authMiddleware.RequireRole(CatalogWriterRoles...))
		}
		writers.POST("", catalogHandler.CreateProduct)
		writers.DELETE("/:id", catalogHandler.DeleteProduct)

		// Отзыв может оставить любой аутентифицированный пользователь
		reviewers := products.Group("")
		if authMiddleware.Enabled() {
			reviewers.Use(authMiddleware.Authenticate())
		}
		reviewers.POST("/:id/reviews", reviewHandler.AddReview)
	}

	return router
}
