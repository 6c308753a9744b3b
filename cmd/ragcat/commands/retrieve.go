package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quanfold/ragcat-go/internal/generate"
	"github.com/quanfold/ragcat-go/internal/logging"
	"github.com/quanfold/ragcat-go/internal/progress"
	"github.com/quanfold/ragcat-go/internal/rag"
)

// NewRetrieveCmd constructs the `ragcat retrieve` command: retrieval only,
// no generation. Useful for inspecting what an ask would be grounded on.
func NewRetrieveCmd() *cobra.Command {
	var topK int
	var showBlock bool

	cmd := &cobra.Command{
		Use:   "retrieve [question]",
		Short: "Retrieve the contexts a question would be grounded on",
		Long: `Embed a question and print the most similar catalog documents without
calling the generation service.

Examples:
  ragcat retrieve "How is the transactions table partitioned?"
  ragcat retrieve --top-k 10 --show-block "Which pipelines feed this table?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			question := strings.Join(args, " ")

			embedder := newEmbedClient()
			if err := embedder.Health(ctx); err != nil {
				return fmt.Errorf("retrieve: embedding service not reachable: %w", err)
			}

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}
			defer store.Close()

			cfg := pipelineConfig()
			if topK > 0 {
				cfg.TopK = topK
			}

			// No generator — the pipeline supports retrieval-only use.
			pipeline, err := rag.New(embedder, store, nil, cfg)
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}
			pipeline.OnStage = func(name string) func() {
				ind := progress.NewIndicator(os.Stderr, name)
				ind.Start()
				return ind.Stop
			}

			contexts, timings, err := pipeline.Retrieve(ctx, question)
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}

			fmt.Println()
			if len(contexts) == 0 {
				fmt.Println("no matching documents were found for this question")
			} else {
				for i, c := range contexts {
					label := c.SourceType
					if c.Component != "" {
						label += " - " + c.Component
					}
					fmt.Printf("%d. [%s] %.1f%% match\n", i+1, label, c.Similarity*100)
					fmt.Printf("   %s\n", c.Content)
				}
			}

			if showBlock && len(contexts) > 0 {
				fmt.Println("\ncontext block as sent to the generation service:")
				fmt.Println(generate.BuildContext(contexts))
			}

			fmt.Printf("\n%s\n", timings.String())
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of contexts to retrieve (default 6)")
	cmd.Flags().BoolVar(&showBlock, "show-block", false, "Print the assembled context block")

	return cmd
}
