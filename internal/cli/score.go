package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/scoring/pipeline"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file.json|-]",
	Short: "Score a wallet document offline and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	setupLogging("")

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open wallet file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}

	result, err := scoreDocument(r)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// scoreDocument runs the engine over one wallet document.
func scoreDocument(r io.Reader) (*domain.WalletScoreResult, error) {
	in, err := domain.DecodeWalletInput(r)
	if err != nil {
		return nil, err
	}
	return pipeline.Process(in), nil
}
