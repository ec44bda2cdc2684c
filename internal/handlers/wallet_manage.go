package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// SetUserWalletRequest binds a destination address to a user on one chain.
type SetUserWalletRequest struct {
	UserID  uint   `json:"user_id" binding:"required"`
	Chain   string `json:"chain" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// SetUserWalletHandler validates and upserts a destination address.
func SetUserWalletHandler(c *gin.Context) {
	var req SetUserWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := business.SetUserWallet(Registry, req.UserID, req.Chain, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// ListUserWalletsHandler returns a user's destination addresses.
func ListUserWalletsHandler(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id format"})
		return
	}

	wallets, err := business.ListUserWallets(uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallets)
}
