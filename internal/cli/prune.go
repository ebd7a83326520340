package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/walletscore/internal/infra/storage/postgres"
)

var pruneCmd = &cobra.Command{
	Use:   "prune [older_than]",
	Short: "Delete archived results older than a duration (e.g. 720h)",
	Args:  cobra.ExactArgs(1),
	Run:   runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) {
	age, err := time.ParseDuration(args[0])
	if err != nil || age <= 0 {
		fmt.Printf("Invalid duration: %s\n", args[0])
		os.Exit(1)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	cutoff := time.Now().Add(-age)
	n, err := postgres.NewResultRepo(db).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune results", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted %d results created before %s\n", n, cutoff.UTC().Format(time.RFC3339))
}
