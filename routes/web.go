package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupWebRoutes registers the service info page.
func SetupWebRoutes(router *gin.Engine, versionTag string) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Turkish Address Matcher",
			"version_tag": versionTag,
			"endpoints": map[string]string{
				"normalize":   "POST /v1/addresses/normalize",
				"parse":       "POST /v1/addresses/parse",
				"batch":       "POST /v1/addresses/jobs",
				"job_status":  "GET /v1/addresses/jobs/:jobID/status",
				"job_results": "GET /v1/addresses/jobs/:jobID/results",
				"match":       "POST /v1/match",
				"score":       "POST /v1/score",
				"invalidate":  "POST /v1/admin/cache/invalidate",
				"stats":       "GET /v1/admin/stats",
				"seed":        "POST /v1/admin/gazetteer/seed",
				"health":      "GET /health",
			},
		})
	})
}
