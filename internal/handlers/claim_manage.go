package handlers

import (
	"net/http"
	"strconv"

	"vaultback/internal/handlers/business"

	"github.com/gin-gonic/gin"
)

// RequestClaimRequest opens a withdrawal intent for accrued yield or emission.
type RequestClaimRequest struct {
	UserID       uint   `json:"user_id" binding:"required"`
	InvestmentID uint   `json:"investment_id" binding:"required"`
	ClaimType    string `json:"claim_type" binding:"required"`
}

// RequestClaimHandler snapshots the pending balance into a PENDING claim.
func RequestClaimHandler(c *gin.Context) {
	var req RequestClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := business.RequestClaim(req.UserID, req.InvestmentID, req.ClaimType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// GetClaimHandler returns one claim by ID.
func GetClaimHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	claim, err := business.GetClaim(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// ListUserClaimsHandler returns a user's claims, newest first.
func ListUserClaimsHandler(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id format"})
		return
	}

	claims, err := business.ListUserClaims(uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

// ListClaimsHandler is the operator view, optionally filtered by status.
func ListClaimsHandler(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit format"})
			return
		}
		limit = parsed
	}

	claims, err := business.ListClaims(c.Query("status"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}

// OperatorActionRequest identifies the operator acting on a claim.
type OperatorActionRequest struct {
	OperatorID uint   `json:"operator_id" binding:"required"`
	Reason     string `json:"reason"`
}

// ApproveClaimHandler moves a PENDING claim to APPROVED.
func ApproveClaimHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req OperatorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := business.ApproveClaim(uint(id), req.OperatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// RejectClaimHandler rejects a claim and restores the snapshot to the
// investment's pending balance.
func RejectClaimHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req OperatorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := business.RejectClaim(uint(id), req.OperatorID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// ProcessClaimHandler settles a claim: tax, outbound transfer, and claim
// completion in one transaction.
func ProcessClaimHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	var req OperatorActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := business.ProcessClaim(c.Request.Context(), Dispatcher, uint(id), req.OperatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}
