package restapi

import (
	"net/http"

	"batch_payout/internal/app/port"
	"batch_payout/internal/infrastructure/configloader"
	"batch_payout/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// RouterDeps holds everything SetupRouter wires into the engine.
type RouterDeps struct {
	Handler  *TransferHandler
	Sessions port.SessionProvider
	Metrics  *metrics.Metrics
	// Gatherer backs the metrics endpoint; nil selects the default registry.
	Gatherer prometheus.Gatherer
	Config   *configloader.Config
	Logger   *zap.Logger
}

// SetupRouter builds the gin engine serving the payout API.
func SetupRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(deps.Config.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = deps.Config.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", deps.Config.Session.Header}
	router.Use(cors.New(corsConfig))

	router.Use(ZapLoggerMiddleware(deps.Logger))
	router.Use(MetricsMiddleware(deps.Metrics))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/tokens", deps.Handler.ListTokens)
	router.GET("/network", deps.Handler.GetNetwork)

	account := router.Group("/account", RequireSession(deps.Sessions))
	{
		account.GET("", deps.Handler.GetAccount)
		account.GET("/balance", deps.Handler.GetBalance)
		account.POST("/transfer", deps.Handler.Transfer)
		account.POST("/recipients/csv", deps.Handler.ParseRecipients)
	}

	if deps.Config.Metrics.Enabled {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		router.GET(deps.Config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
		deps.Logger.Info("Prometheus metrics endpoint enabled", zap.String("path", deps.Config.Metrics.Path))
	}

	if deps.Config.Swagger.Enabled {
		const specURL = "/docs/swagger.yaml"
		router.StaticFile(specURL, deps.Config.Swagger.SpecFile)
		router.GET(deps.Config.Swagger.Path+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(specURL)))
		deps.Logger.Info("Swagger UI enabled", zap.String("path", deps.Config.Swagger.Path+"/index.html"))
	}

	return router
}
