package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"ptrj.com/venus/config"
	"ptrj.com/venus/core"
	"ptrj.com/venus/mill"
)

// Validates staged records against the mill database without driving the
// browser, and optionally reconciles the offline queue.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	processQueue := flag.Bool("process-queue", false, "reconcile queued offline validations instead")
	limit := flag.Int("limit", 100, "maximum number of staged records to validate")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	store, err := core.OpenStore(cfg.StagingDB, logger)
	if err != nil {
		logger.Fatal("failed to open staging store", zap.Error(err))
	}

	manager := mill.NewManager(cfg.Mill.Profiles, logger)
	defer manager.Close()

	mode := cfg.MillMode()
	validator := mill.NewValidator(store, manager.ForDatabase(mill.Database(mode)), mode, logger)

	ctx := context.Background()

	if *processQueue {
		processed, err := validator.ProcessOfflineQueue(ctx)
		if err != nil {
			logger.Fatal("offline queue processing aborted",
				zap.Int("processed", processed), zap.Error(err))
		}
		fmt.Printf("reconciled %d offline queue entries\n", processed)
		return
	}

	records, _, err := store.SearchStaging(core.StagingFilter{Limit: *limit})
	if err != nil {
		logger.Fatal("failed to load staged records", zap.Error(err))
	}

	counts := map[string]int{}
	for i := range records {
		res := validator.Validate(ctx, &records[i])
		counts[res.Status]++
		fmt.Printf("%s %s %s: %s\n",
			records[i].EmployeeIDPtrj, records[i].Date, res.TrxDate, res.Status)
	}

	fmt.Printf("validated %d records:", len(records))
	for status, n := range counts {
		fmt.Printf(" %s=%d", status, n)
	}
	fmt.Println()
}
