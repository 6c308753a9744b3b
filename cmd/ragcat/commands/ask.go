package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quanfold/ragcat-go/internal/history"
	"github.com/quanfold/ragcat-go/internal/logging"
	"github.com/quanfold/ragcat-go/internal/progress"
	"github.com/quanfold/ragcat-go/internal/rag"
)

// NewAskCmd constructs the `ragcat ask` command, which answers a single
// natural language question about the tracked table.
func NewAskCmd() *cobra.Command {
	var topK int
	var showContexts bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about the tracked table",
		Long: `Ask a natural language question about the catalog's tracked table.

The question is embedded, the most similar catalog documents are retrieved
from the vector store, and question plus contexts are forwarded to the
generation service. The answer is printed with its sources and a per-stage
latency breakdown.

Examples:
  ragcat ask "How is the transactions table partitioned?"
  ragcat ask --top-k 3 "Which pipelines feed this table?"
  ragcat ask --show-contexts "What does the daily volume look like?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := strings.Join(args, " ")

			embedder := newEmbedClient()
			generator := newGenerateClient()

			// Pre-flight both services so a dead dependency fails in
			// milliseconds instead of after a full timeout.
			if err := embedder.Health(ctx); err != nil {
				return fmt.Errorf("ask: embedding service not reachable: %w", err)
			}
			if err := generator.Health(ctx); err != nil {
				return fmt.Errorf("ask: generation service not reachable: %w", err)
			}

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer store.Close()

			cfg := pipelineConfig()
			if topK > 0 {
				cfg.TopK = topK
			}

			pipeline, err := rag.New(embedder, store, generator, cfg)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			pipeline.OnStage = func(name string) func() {
				ind := progress.NewIndicator(os.Stderr, name)
				ind.Start()
				return ind.Stop
			}

			answer, err := pipeline.Ask(ctx, question)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println()
			fmt.Println(answer.Text)
			fmt.Println()

			if len(answer.Contexts) == 0 {
				fmt.Println("no matching documents were found for this question")
			} else {
				fmt.Printf("sources (%d):\n", len(answer.Contexts))
				for _, c := range answer.Contexts {
					label := c.SourceType
					if c.Component != "" {
						label += " - " + c.Component
					}
					fmt.Printf("  [%s] %.1f%% match\n", label, c.Similarity*100)
					if showContexts {
						fmt.Printf("      %s\n", c.Content)
					}
				}
			}

			fmt.Printf("\n%s\n", answer.Timings.String())

			saveHistory(log, question, answer)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of contexts to retrieve (default 6)")
	cmd.Flags().BoolVar(&showContexts, "show-contexts", false, "Print the full text of each retrieved context")

	return cmd
}

// saveHistory appends the exchange to the local history store. History is
// best-effort: failures are logged, never surfaced to the user.
func saveHistory(log *slog.Logger, question string, answer *rag.Answer) {
	dbPath := os.Getenv("RAGCAT_HISTORY_DB")
	if dbPath == "disabled" {
		return
	}
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path", slog.Any("error", err))
			return
		}
	}

	hs, err := history.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store", slog.Any("error", err))
		return
	}
	defer hs.Close()

	entry := history.Entry{
		Question:     question,
		Answer:       answer.Text,
		Contexts:     len(answer.Contexts),
		TotalSeconds: answer.Timings.Total().Seconds(),
	}
	if err := hs.Append(context.Background(), entry); err != nil {
		log.Warn("history: failed to append entry", slog.Any("error", err))
	}
}
