package business

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vaultback/internal/models"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"

	"github.com/sirupsen/logrus"
)

// VerificationTask is the queue message linking the API to the worker. The
// worker re-reads the pending legs from the database, so a redelivered or
// duplicated message is harmless.
type VerificationTask struct {
	InvestmentID uint `json:"investment_id"`
}

// PendingJobs returns unfinished verification jobs, scoped to one investment
// when investmentID is nonzero.
func PendingJobs(investmentID uint) ([]*models.VerificationJob, error) {
	query := dbconfig.DB.Where("status = ?", models.VerificationStatusPending)
	if investmentID != 0 {
		query = query.Where("investment_id = ?", investmentID)
	}
	var jobs []*models.VerificationJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// HandleVerificationTask decodes one queue message and runs its legs against
// the chains. Returning an error requeues the message.
func HandleVerificationTask(ctx context.Context, registry *chain.Registry, payload []byte) error {
	var task VerificationTask
	if err := json.Unmarshal(payload, &task); err != nil {
		logrus.Errorf("Discarding malformed verification task: %v", err)
		return nil
	}

	jobs, err := PendingJobs(task.InvestmentID)
	if err != nil {
		return fmt.Errorf("load pending jobs for investment %d: %w", task.InvestmentID, err)
	}
	if len(jobs) == 0 {
		return nil
	}
	return runVerification(ctx, registry, jobs)
}

// SweepPendingJobs verifies every pending leg regardless of origin. It is
// the fallback for lost queue messages and pre-queue backlogs.
func SweepPendingJobs(ctx context.Context, registry *chain.Registry) (int, error) {
	jobs, err := PendingJobs(0)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	if err := runVerification(ctx, registry, jobs); err != nil {
		return 0, err
	}
	return len(jobs), nil
}

// VerifyBySignature verifies pending legs whose proof matches a signature
// surfaced by a deposit watcher, so a watched deposit confirms without
// waiting for the next sweep.
func VerifyBySignature(ctx context.Context, registry *chain.Registry, chainName, signature string) error {
	var jobs []*models.VerificationJob
	err := dbconfig.DB.
		Where("status = ? AND chain = ? AND proof = ?", models.VerificationStatusPending, chainName, signature).
		Find(&jobs).Error
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}
	return runVerification(ctx, registry, jobs)
}

func runVerification(ctx context.Context, registry *chain.Registry, jobs []*models.VerificationJob) error {
	if dbconfig.Settings != nil && dbconfig.Settings.SkipVerification {
		return confirmWithoutChain(jobs)
	}

	results := VerifyDepositLegs(ctx, registry, jobs)
	for _, res := range results {
		if err := ApplyLegResult(res); err != nil {
			return fmt.Errorf("apply result for job %d: %w", res.Job.ID, err)
		}
	}
	return nil
}

// confirmWithoutChain confirms every leg at its expected amount. Staging
// only; InitSettings refuses the flag in production.
func confirmWithoutChain(jobs []*models.VerificationJob) error {
	for _, job := range jobs {
		logrus.Warnf("Verification skipped for job %d (%s leg, investment %d)", job.ID, job.Leg, job.InvestmentID)
		res := LegResult{
			Job: job,
			Result: &chain.InboundResult{
				Confirmed:    true,
				ActualAmount: job.ExpectedAmount,
				BlockTime:    time.Now(),
			},
		}
		if err := ApplyLegResult(res); err != nil {
			return fmt.Errorf("apply skipped result for job %d: %w", job.ID, err)
		}
	}
	return nil
}
