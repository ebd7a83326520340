package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/infra/storage"
	"github.com/vietddude/walletscore/internal/infra/storage/postgres"
	"github.com/vietddude/walletscore/internal/scoring/pipeline"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [wallet]",
	Short: "Show archived scores for a wallet",
	Args:  cobra.ExactArgs(1),
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", storage.DefaultListLimit, "maximum number of results")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("database.url is not configured")
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

	results, err := postgres.NewResultRepo(db).ListByWallet(ctx, args[0], historyLimit)
	if err != nil {
		slog.Error("Failed to query results", "error", err)
		os.Exit(1)
	}

	printHistory(os.Stdout, results)
}

func printHistory(out io.Writer, results []*domain.ArchivedResult) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CREATED\tTRANSPORT\tOUTCOME\tZSCORE\tTXS")

	for _, a := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			a.CreatedAt.UTC().Format(time.RFC3339),
			a.Transport,
			pipeline.OutcomeOf(&a.Result),
			a.Result.ZScore,
			a.Result.TransactionCount(),
		)
	}
	_ = w.Flush()
}
