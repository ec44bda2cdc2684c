package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// WithdrawTreasuryRequest moves collected tax out of the treasury ledger.
type WithdrawTreasuryRequest struct {
	Asset  string  `json:"asset" binding:"required"`
	Amount float64 `json:"amount" binding:"required"`
	Proof  string  `json:"proof"`
}

// ListTreasuryBalancesHandler returns the per-asset treasury aggregates.
func ListTreasuryBalancesHandler(c *gin.Context) {
	balances, err := business.TreasuryBalances()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

// ListTaxRecordsHandler returns recent tax records, optionally filtered by
// source type.
func ListTaxRecordsHandler(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit format"})
			return
		}
		limit = parsed
	}

	records, err := business.TaxRecords(c.Query("source_type"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// WithdrawTreasuryHandler debits the treasury balance for an asset.
func WithdrawTreasuryHandler(c *gin.Context) {
	var req WithdrawTreasuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := business.WithdrawTreasury(req.Asset, req.Amount, req.Proof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balance)
}
