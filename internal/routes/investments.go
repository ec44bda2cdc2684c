package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupInvestmentRoutes wires the investment lifecycle endpoints.
func SetupInvestmentRoutes(r *gin.Engine) {
	v1 := r.Group("/investments")
	{
		v1.POST("", handlers.CreateInvestmentHandler)
		v1.GET("/:id", handlers.GetInvestmentHandler)
		v1.GET("/user/:user_id", handlers.ListUserInvestmentsHandler)
		v1.POST("/:id/reject", handlers.RejectInvestmentHandler)
	}
}
