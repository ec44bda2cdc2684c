package main

import (
	"context"
	"os"
	"time"

	"vaultback/internal/handlers/business"
	"vaultback/pkg/chain"
	dbconfig "vaultback/pkg/config"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

func runActivation() {
	n, err := business.ActivateDue(time.Now())
	if err != nil {
		logger.Errorf("> Activation pass failed: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("> Activated %d investments", n)
	}
}

func runAccrual() {
	n, err := business.AccrueAll(time.Now())
	if err != nil {
		logger.Errorf("> Accrual pass failed: %v", err)
		return
	}
	logger.Infof("> Accrued %d investments", n)
}

func runCompletion(dispatcher *chain.Dispatcher) {
	n, err := business.CompleteDue(time.Now())
	if err != nil {
		logger.Errorf("> Completion pass failed: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("> Completed %d investments", n)
	}

	returned, err := business.ReturnBoosts(context.Background(), dispatcher)
	if err != nil {
		logger.Errorf("> Boost return pass failed: %v", err)
		return
	}
	if returned > 0 {
		logger.Infof("> Returned %d boosts", returned)
	}
}

func runDifficultyRefresh() {
	difficulty, err := business.RefreshDifficulty()
	if err != nil {
		logger.Errorf("> Difficulty refresh failed: %v", err)
		return
	}
	logger.Infof("> Emission difficulty now %.4f", difficulty)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("> No .env file found, using environment variables")
	}

	os.MkdirAll("logs", 0755)
	file, err := os.OpenFile("logs/schedule.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logger.SetOutput(file)
	} else {
		logger.Warn("> Cannot open log file, logging to stdout")
	}

	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logger.InfoLevel)
	logger.Info("> Starting schedule process...")

	dbconfig.InitSettings()
	dbconfig.InitDB()
	logger.Info("> Database connection initialized")

	keystore := chain.NewKeyStore(dbconfig.Settings.KeystorePath)
	registry := dbconfig.BuildVerifierRegistry(keystore)
	dispatcher := chain.NewDispatcher(registry)
	defer dispatcher.Close()

	c := cron.New(cron.WithSeconds())

	// Activation sweep every 5 minutes
	if _, err := c.AddFunc("0 */5 * * * *", runActivation); err != nil {
		logger.Fatalf("> Failed to add activation job: %v", err)
	}

	// Accrual reconciliation every 10 minutes
	if _, err := c.AddFunc("0 */10 * * * *", runAccrual); err != nil {
		logger.Fatalf("> Failed to add accrual job: %v", err)
	}

	// Completion and boost returns every 10 minutes, offset from accrual
	if _, err := c.AddFunc("30 */10 * * * *", func() { runCompletion(dispatcher) }); err != nil {
		logger.Fatalf("> Failed to add completion job: %v", err)
	}

	// Emission difficulty refresh every hour
	if _, err := c.AddFunc("0 0 * * * *", runDifficultyRefresh); err != nil {
		logger.Fatalf("> Failed to add difficulty job: %v", err)
	}

	logger.Info("> Schedule jobs registered")
	c.Start()

	select {}
}
