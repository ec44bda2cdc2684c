package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupWalletRoutes wires the destination address endpoints.
func SetupWalletRoutes(r *gin.Engine) {
	v1 := r.Group("/wallets")
	{
		v1.POST("", handlers.SetUserWalletHandler)
		v1.GET("/user/:user_id", handlers.ListUserWalletsHandler)
	}
}
