// Command stuckjobs lists generation records that have been sitting in the
// processing state longer than a threshold. Records only leave processing
// when their pipeline finishes, so anything old here points at a crashed
// process or a hung provider call.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
)

func main() {
	threshold := flag.Duration("older-than", 10*time.Minute, "report jobs processing for longer than this")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	contentRepo := repo.NewContentRepository(dbpool)
	stuck, err := contentRepo.ListProcessingOlderThan(ctx, *threshold)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to list processing records")
	}

	if len(stuck) == 0 {
		fmt.Printf("no jobs processing for more than %s\n", *threshold)
		return
	}

	now := time.Now().UTC()
	fmt.Printf("%-36s  %-16s  %-7s  %s\n", "ID", "OWNER", "SCENES", "AGE")
	for _, c := range stuck {
		fmt.Printf("%-36s  %-16s  %-7d  %s\n",
			c.ID, c.OwnerID, len(c.Scenes), now.Sub(c.UpdatedAt).Round(time.Second))
	}
	fmt.Printf("\n%d stuck job(s)\n", len(stuck))
}
