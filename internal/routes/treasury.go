package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupTreasuryRoutes wires the tax ledger endpoints.
func SetupTreasuryRoutes(r *gin.Engine) {
	v1 := r.Group("/treasury")
	{
		v1.GET("/balances", handlers.ListTreasuryBalancesHandler)
		v1.GET("/tax-records", handlers.ListTaxRecordsHandler)
		v1.POST("/withdraw", handlers.WithdrawTreasuryHandler)
	}
}
