package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupSystemRoutes wires the operator audit-trail endpoint.
func SetupSystemRoutes(r *gin.Engine) {
	admin := r.Group("/admin/system-logs")
	{
		admin.GET("", handlers.ListSystemLogsHandler)
	}
}
