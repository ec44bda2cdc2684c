package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"
	"vaultback/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateVaultRequest carries the parameters for a new capital pool.
type CreateVaultRequest struct {
	Name             string  `json:"name" binding:"required"`
	Tier             string  `json:"tier"`
	Chain            string  `json:"chain" binding:"required"`
	Asset            string  `json:"asset" binding:"required"`
	CollateralAsset  string  `json:"collateral_asset"`
	DurationDays     int     `json:"duration_days" binding:"required"`
	BaseRate         float64 `json:"base_rate" binding:"required"`
	MaxRate          float64 `json:"max_rate" binding:"required"`
	BaseEmissionRate float64 `json:"base_emission_rate"`
	MaxEmissionRate  float64 `json:"max_emission_rate"`
	MinContribution  float64 `json:"min_contribution" binding:"required"`
	MaxContribution  float64 `json:"max_contribution" binding:"required"`
	TotalCapacity    float64 `json:"total_capacity" binding:"required"`
	CollateralRatio  float64 `json:"collateral_ratio"`
}

// ListVaultsHandler returns vaults, optionally only those open for entry.
func ListVaultsHandler(c *gin.Context) {
	openOnly := c.Query("open") == "true"
	vaults, err := business.ListVaults(openOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vaults)
}

// GetVaultHandler returns a single vault by ID.
func GetVaultHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	vault, err := business.GetVault(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vault)
}

// CreateVaultHandler opens a new vault lineage.
func CreateVaultHandler(c *gin.Context) {
	var req CreateVaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vault := &models.Vault{
		Name:             req.Name,
		Tier:             req.Tier,
		Chain:            req.Chain,
		Asset:            req.Asset,
		CollateralAsset:  req.CollateralAsset,
		DurationDays:     req.DurationDays,
		BaseRate:         req.BaseRate,
		MaxRate:          req.MaxRate,
		BaseEmissionRate: req.BaseEmissionRate,
		MaxEmissionRate:  req.MaxEmissionRate,
		MinContribution:  req.MinContribution,
		MaxContribution:  req.MaxContribution,
		TotalCapacity:    req.TotalCapacity,
		CollateralRatio:  req.CollateralRatio,
		IsActive:         true,
		Generation:       1,
	}
	if err := business.CreateVault(vault); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vault)
}
