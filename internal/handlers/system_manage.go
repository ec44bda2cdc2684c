package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// ListSystemLogsHandler returns the persisted audit trail, optionally scoped
// to one module via ?module=.
func ListSystemLogsHandler(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit format"})
			return
		}
		limit = parsed
	}

	logs, err := business.SystemLogs(c.Query("module"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
