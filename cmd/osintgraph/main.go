package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"OsintGraph/internal/app"
	"OsintGraph/internal/config"
	"OsintGraph/internal/domain"
	"OsintGraph/internal/logging"
)

func main() {
	reprocess := flag.Bool("reprocess", false, "re-enrich articles still tagged fallback instead of ingesting")
	sourceFilter := flag.String("source", "", "restrict reprocessing to one source name")
	daemon := flag.Bool("daemon", false, "keep running, executing recurring ingestion passes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	switch {
	case *reprocess:
		stats, err := application.RunReprocess(ctx, *sourceFilter)
		if err != nil {
			logger.Error("reprocessing failed", "error", err)
			os.Exit(1)
		}
		printReprocessSummary(stats)
	case *daemon:
		if err := application.RunDaemon(ctx); err != nil {
			logger.Error("daemon stopped", "error", err)
			os.Exit(1)
		}
	default:
		stats, err := application.RunIngestion(ctx, flag.Args())
		if err != nil {
			logger.Error("ingestion failed", "error", err)
			os.Exit(1)
		}
		printRunSummary(stats)
	}
}

func printRunSummary(stats domain.RunStats) {
	fmt.Println("\n" + strings.Repeat("=", 20) + " PROCESSING SUMMARY " + strings.Repeat("=", 20))
	fmt.Printf("  Total Articles Scanned:      %d\n", stats.TotalProcessed)
	fmt.Printf("  Successful AI Summaries:     %d\n", stats.AISuccess)
	fmt.Printf("  Fallback Summaries Used:     %d\n", stats.FallbackSummary)
	fmt.Printf("  Skipped (Already in DB):     %d\n", stats.SkippedDuplicate)
	fmt.Println(strings.Repeat("=", 60))
}

func printReprocessSummary(stats domain.ReprocessStats) {
	fmt.Println("\n" + strings.Repeat("=", 20) + " REPROCESSING SUMMARY " + strings.Repeat("=", 18))
	fmt.Printf("  Articles Attempted:          %d\n", stats.Attempted)
	fmt.Printf("  Healed (fallback -> ai):     %d\n", stats.Healed)
	fmt.Printf("  Still Failing:               %d\n", stats.StillFailed)
	fmt.Println(strings.Repeat("=", 60))
}
