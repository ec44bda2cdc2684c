package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CreateInvestmentRequest is the client's entry into a vault. Proof fields
// may arrive empty and be submitted later through the proof endpoint.
type CreateInvestmentRequest struct {
	UserID          uint    `json:"user_id" binding:"required"`
	VaultID         uint    `json:"vault_id" binding:"required"`
	Principal       float64 `json:"principal" binding:"required"`
	FromAddress     string  `json:"from_address"`
	PrincipalProof  string  `json:"principal_proof"`
	CollateralProof string  `json:"collateral_proof"`
	BoostType       string  `json:"boost_type"`
	BoostAsset      string  `json:"boost_asset"`
	BoostAmount     float64 `json:"boost_amount"`
	BoostValueUSD   float64 `json:"boost_value_usd"`
	BoostProof      string  `json:"boost_proof"`
}

// CreateInvestmentHandler opens an investment and queues its deposit legs
// for chain verification.
func CreateInvestmentHandler(c *gin.Context) {
	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	investment, err := business.CreateInvestment(business.CreateInvestmentInput{
		UserID:          req.UserID,
		VaultID:         req.VaultID,
		Principal:       req.Principal,
		FromAddress:     req.FromAddress,
		PrincipalProof:  req.PrincipalProof,
		CollateralProof: req.CollateralProof,
		BoostType:       req.BoostType,
		BoostAsset:      req.BoostAsset,
		BoostAmount:     req.BoostAmount,
		BoostValueUSD:   req.BoostValueUSD,
		BoostProof:      req.BoostProof,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	enqueueVerification(investment.ID)
	c.JSON(http.StatusOK, investment)
}

// enqueueVerification hands the investment's pending legs to the worker. A
// publish failure is logged, not surfaced: the worker's periodic sweep picks
// up stragglers.
func enqueueVerification(investmentID uint) {
	if JobPublisher == nil {
		return
	}
	task := business.VerificationTask{InvestmentID: investmentID}
	if err := JobPublisher.Publish(VerificationQueue, task); err != nil {
		logrus.Errorf("Publish verification task for investment %d failed: %v", investmentID, err)
	}
}

// GetInvestmentHandler returns one investment with its vault.
func GetInvestmentHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	investment, err := business.GetInvestment(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, investment)
}

// ListUserInvestmentsHandler returns a user's investments, newest first.
func ListUserInvestmentsHandler(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id format"})
		return
	}

	investments, err := business.ListInvestments(uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, investments)
}

// RejectInvestmentRequest carries the operator's rejection reason.
type RejectInvestmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectInvestmentHandler marks a pending investment REJECTED.
func RejectInvestmentHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req RejectInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := business.RejectInvestment(uint(id), req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Investment rejected"})
}
