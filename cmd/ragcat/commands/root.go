// Package commands defines all Cobra CLI commands for the ragcat binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/quanfold/ragcat-go/internal/audit"
	"github.com/quanfold/ragcat-go/internal/config"
	"github.com/quanfold/ragcat-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragcat",
		Short: "ragcat — ask natural language questions about your data catalog",
		Long: `ragcat is a retrieval-augmented assistant for data catalog metadata.

It loads pre-authored catalog documents (schema, lineage, operational logs,
metrics) into a vector store, and answers natural language questions about
the tracked table by retrieving the most relevant documents and forwarding
them to a local generation service.

Connection settings come from environment variables or a YAML config file
(~/.ragcat/config.yaml). See 'ragcat --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragcat/config.yaml)")

	root.AddCommand(
		NewLoadCmd(),
		NewAskCmd(),
		NewRetrieveCmd(),
		NewServeCmd(),
		NewHistoryCmd(),
		NewVersionCmd(),
	)

	return root
}
