package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupVaultRoutes wires the vault catalog endpoints.
func SetupVaultRoutes(r *gin.Engine) {
	v1 := r.Group("/vaults")
	{
		v1.GET("", handlers.ListVaultsHandler)
		v1.GET("/:id", handlers.GetVaultHandler)
		v1.POST("", handlers.CreateVaultHandler)
	}
}
