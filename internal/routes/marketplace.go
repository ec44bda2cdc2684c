package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupMarketplaceRoutes wires the investment resale endpoints.
func SetupMarketplaceRoutes(r *gin.Engine) {
	v1 := r.Group("/marketplace")
	{
		v1.POST("/sell", handlers.SellInvestmentHandler)
		v1.GET("/sales/:investment_id", handlers.ListInvestmentSalesHandler)
	}
}
