package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"
	"vaultback/internal/models"
	dbconfig "vaultback/pkg/config"

	"github.com/gin-gonic/gin"
)

// SellInvestmentRequest transfers an investment to a new owner at a price.
type SellInvestmentRequest struct {
	SellerID     uint    `json:"seller_id" binding:"required"`
	BuyerID      uint    `json:"buyer_id" binding:"required"`
	InvestmentID uint    `json:"investment_id" binding:"required"`
	Price        float64 `json:"price" binding:"required"`
}

// SellInvestmentHandler executes an atomic marketplace sale.
func SellInvestmentHandler(c *gin.Context) {
	var req SellInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sale, err := business.SellInvestment(req.SellerID, req.BuyerID, req.InvestmentID, req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// ListInvestmentSalesHandler returns the sale history of one investment.
func ListInvestmentSalesHandler(c *gin.Context) {
	investmentID, err := strconv.Atoi(c.Param("investment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid investment_id format"})
		return
	}

	var sales []models.MarketplaceSale
	if err := dbconfig.DB.Where("investment_id = ?", investmentID).
		Order("id desc").Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sales)
}
