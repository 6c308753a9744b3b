package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quanfold/ragcat-go/internal/history"
)

// NewHistoryCmd constructs the `ragcat history` command, which prints the
// most recent ask exchanges from the local history store.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent questions and answers",
		Long: `Show the most recent ask exchanges recorded in the local history store.

History is written by 'ragcat ask'. Set RAGCAT_HISTORY_DB to override the
database path (~/.ragcat/history.db), or to "disabled" to turn history off.

Examples:
  ragcat history
  ragcat history --limit 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := os.Getenv("RAGCAT_HISTORY_DB")
			if dbPath == "disabled" {
				fmt.Println("history is disabled (RAGCAT_HISTORY_DB=disabled)")
				return nil
			}
			if dbPath == "" {
				var err error
				dbPath, err = history.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
			}

			hs, err := history.Open(dbPath)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer hs.Close()

			entries, err := hs.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("no history yet — run 'ragcat ask' first")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("[%s] %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Question)
				fmt.Printf("    %s\n", e.Answer)
				fmt.Printf("    (%d contexts, %.3fs)\n\n", e.Contexts, e.TotalSeconds)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of entries to show")

	return cmd
}
