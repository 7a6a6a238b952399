package devserver

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// buildRouter wires the backend contract routes under /api.
func buildRouter(logger *log.Logger, api *API, allowedOrigin string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{allowedOrigin}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "Idempotency-Key")
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", healthHandler)

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/auth/token", api.issueTokens)
		apiGroup.POST("/auth/token/refresh", api.refreshToken)
		apiGroup.GET("/user-profile", api.userProfile)
		apiGroup.GET("/stores", api.listStores)
		apiGroup.POST("/orders", api.placeOrder)
		apiGroup.GET("/orders/:id/status", api.orderStatus)
		apiGroup.POST("/payment/:method/initiate", api.initiatePayment)
	}

	return router
}
