package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quanfold/ragcat-go/internal/ingest"
	"github.com/quanfold/ragcat-go/internal/logging"
)

// NewLoadCmd constructs the `ragcat load` command, which embeds and inserts
// the canonical catalog documents into the vector store.
func NewLoadCmd() *cobra.Command {
	var dir string
	var migrate bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the canonical catalog documents into the vector store",
		Long: `Load the pre-authored catalog documents into the vector store.

Each document is read from --dir, embedded through the embedding service,
and inserted in its own transaction. A document that fails to read, embed,
or insert is skipped; the run continues and reports a final tally.

Examples:
  ragcat load
  ragcat load --dir ./data
  DB_HOST=db.internal ragcat load --migrate=false`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			embedder := newEmbedClient()

			// Pre-flight: fail fast when the embedding service is down rather
			// than erroring on every document.
			if err := embedder.Health(ctx); err != nil {
				return fmt.Errorf("load: embedding service not reachable: %w", err)
			}
			log.Info("embedding service reachable")

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}
			defer store.Close()
			log.Info("database connected")

			if migrate {
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("load: migrate: %w", err)
				}
				log.Info("schema ready")
			}

			batch, err := ingest.NewBatch(embedder, store, log)
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}

			res, err := batch.Run(ctx, dir, ingest.CanonicalFiles, func(msg string) {
				fmt.Fprintf(os.Stderr, "  %s\n", msg)
			})
			if err != nil {
				return fmt.Errorf("load: %w", err)
			}

			fmt.Printf("loaded %d documents, %d failed\n", res.Loaded, res.Failed)

			// Advisory only — a count mismatch is not a load failure.
			if total, countErr := store.Count(ctx); countErr != nil {
				log.Warn("could not count stored documents", slog.Any("error", countErr))
			} else {
				fmt.Printf("store now holds %d documents\n", total)
			}

			if res.Failed > 0 {
				return fmt.Errorf("load: %d of %d documents failed", res.Failed, res.Loaded+res.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "data", "Directory containing the canonical document files")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Create the schema and indexes before loading")

	return cmd
}
