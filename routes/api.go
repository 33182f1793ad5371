package routes

import (
	"github.com/address-matcher/app/controllers"
	"github.com/gin-gonic/gin"
)

// SetupAPIRoutes registers the /v1 endpoints.
func SetupAPIRoutes(router *gin.Engine, c *Controllers) {
	v1 := router.Group("/v1")
	{
		addresses := v1.Group("/addresses")
		{
			addresses.POST("/normalize", c.Address.Normalize)
			addresses.POST("/parse", c.Address.ParseAddress)
			addresses.POST("/jobs", c.Address.BatchParse)
			addresses.GET("/jobs/:jobID/status", c.Address.GetJobStatus)
			addresses.GET("/jobs/:jobID/results", c.Address.GetJobResults)
		}

		v1.POST("/match", c.Match.Match)
		v1.POST("/score", c.Match.Score)

		admin := v1.Group("/admin")
		{
			admin.POST("/cache/invalidate", c.Admin.InvalidateCache)
			admin.GET("/stats", c.Admin.GetStats)
			admin.POST("/gazetteer/seed", c.Admin.SeedGazetteer)
		}
	}
}

// SetupHealthRoutes registers health, readiness and liveness checks.
func SetupHealthRoutes(router *gin.Engine, addressController *controllers.AddressController) {
	router.GET("/health", addressController.HealthCheck)
	router.GET("/ready", addressController.HealthCheck)
	router.GET("/live", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "alive"})
	})
}
