package routes

import (
	"github.com/gin-gonic/gin"

	"vaultback/internal/handlers"
)

// SetupClaimRoutes wires the user-facing claim endpoints and the operator
// approval queue.
func SetupClaimRoutes(r *gin.Engine) {
	v1 := r.Group("/claims")
	{
		v1.POST("", handlers.RequestClaimHandler)
		v1.GET("/:id", handlers.GetClaimHandler)
		v1.GET("/user/:user_id", handlers.ListUserClaimsHandler)
	}

	admin := r.Group("/admin/claims")
	{
		admin.GET("", handlers.ListClaimsHandler)
		admin.POST("/:id/approve", handlers.ApproveClaimHandler)
		admin.POST("/:id/reject", handlers.RejectClaimHandler)
		admin.POST("/:id/process", handlers.ProcessClaimHandler)
	}
}
