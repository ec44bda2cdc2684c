package handlers

import (
	"errors"
	"net/http"

	"vaultback/internal/handlers/business"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"
	"vaultback/pkg/reward"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// VerificationQueue is the RabbitMQ queue deposit verification tasks flow
// through between the API and the worker.
const VerificationQueue = "deposit_verification"

var (
	// Registry holds the per-chain verifiers, set once at startup.
	Registry *chain.Registry

	// Dispatcher serializes outbound transfers per chain.
	Dispatcher *chain.Dispatcher

	// JobPublisher pushes verification tasks to the worker. Nil when RabbitMQ
	// is not configured; verification then waits for the worker's own sweep.
	JobPublisher *dbconfig.Publisher
)

// InitRuntime wires the shared chain infrastructure into the handler layer.
func InitRuntime(registry *chain.Registry, dispatcher *chain.Dispatcher, publisher *dbconfig.Publisher) {
	Registry = registry
	Dispatcher = dispatcher
	JobPublisher = publisher
}

// respondError maps business errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, business.ErrVaultClosed),
		errors.Is(err, business.ErrVaultFull),
		errors.Is(err, business.ErrContributionBounds),
		errors.Is(err, business.ErrDuplicateClaim),
		errors.Is(err, business.ErrNothingToClaim),
		errors.Is(err, business.ErrNoDestination),
		errors.Is(err, business.ErrNotSellable),
		errors.Is(err, business.ErrClaimNotPending),
		errors.Is(err, business.ErrClaimNotApproved),
		errors.Is(err, business.ErrTreasuryShortfall),
		errors.Is(err, business.ErrInvalidTransition),
		errors.Is(err, business.ErrUnsupportedAsset),
		errors.Is(err, reward.ErrBoostTooLarge),
		errors.Is(err, chain.ErrInvalidAddress),
		errors.Is(err, chain.ErrUnsupportedChain):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
