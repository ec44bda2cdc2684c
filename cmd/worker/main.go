package main

import (
	"context"
	"log"
	"os"
	"time"

	"vaultback/internal/handlers/business"
	"vaultback/pkg/chain"
	"vaultback/pkg/config"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"
)

// sweepInterval is how often the worker re-checks pending legs on its own,
// independent of queue traffic.
const sweepInterval = 2 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	config.InitSettings()

	// Initialize database
	config.InitDB()

	keystore := chain.NewKeyStore(config.Settings.KeystorePath)
	registry := config.BuildVerifierRegistry(keystore)

	ctx := context.Background()

	if config.Settings.SkipVerification {
		logrus.Warn("SKIP_VERIFICATION enabled, deposit legs confirm without chain calls")
	}

	startSolanaWatcher(ctx, registry)
	go sweepLoop(ctx, registry)

	if os.Getenv("RABBITMQ_HOST") == "" {
		logrus.Info("RabbitMQ not configured, running on the periodic sweep only")
		select {}
	}

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	// Create consumer for the deposit verification queue
	msgConsumer, err := config.NewConsumer("deposit_verification")
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("Deposit verification worker started, waiting for messages...")

	// Start consuming messages
	err = msgConsumer.Consume(func(msg []byte) error {
		return business.HandleVerificationTask(ctx, registry, msg)
	})
	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}

// sweepLoop periodically verifies every pending leg, catching investments
// whose queue message was lost and proofs submitted before the worker came up.
func sweepLoop(ctx context.Context, registry *chain.Registry) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		n, err := business.SweepPendingJobs(ctx, registry)
		if err != nil {
			logrus.Errorf("Verification sweep failed: %v", err)
			continue
		}
		if n > 0 {
			logrus.Infof("Verification sweep processed %d pending legs", n)
		}
	}
}

// startSolanaWatcher surfaces custody deposits from the websocket feed. A
// surfaced signature that matches a pending leg's proof verifies right away
// instead of waiting for the sweep.
func startSolanaWatcher(ctx context.Context, registry *chain.Registry) {
	cs, ok := config.Settings.Chains["solana"]
	if !ok || cs.WSEndpoint == "" || cs.CustodyAddress == "" {
		return
	}

	watcher := chain.NewDepositWatcher(cs.WSEndpoint, cs.CustodyAddress, func(signature string) {
		logrus.Infof("Custody deposit candidate on solana: %s", signature)
		if err := business.VerifyBySignature(ctx, registry, "solana", signature); err != nil {
			logrus.Errorf("Watcher-triggered verification failed for %s: %v", signature, err)
		}
	})
	if err := watcher.Start(); err != nil {
		logrus.Errorf("Solana deposit watcher failed to start: %v", err)
		return
	}
	logrus.Infof("Solana deposit watcher subscribed to %s", cs.CustodyAddress)
}
