package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quanfold/ragcat-go/internal/logging"
	"github.com/quanfold/ragcat-go/internal/rag"
	"github.com/quanfold/ragcat-go/internal/server"
)

// NewServeCmd constructs the `ragcat serve` command, which starts the HTTP
// API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragcat HTTP API server",
		Long: `Start the ragcat HTTP server on localhost.

The server exposes POST /api/ask and POST /api/search for the ask pipeline,
GET /api/health and /api/ready for probes, and GET /metrics for Prometheus.

Examples:
  ragcat serve
  ragcat serve --port 9090
  DB_HOST=db.internal ragcat serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			embedder := newEmbedClient()
			generator := newGenerateClient()

			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()
			log.Info("database connected")

			pipeline, err := rag.New(embedder, store, generator, pipelineConfig())
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			host, port = serveAddr(cmd, host, port)

			pingers := []server.Pinger{
				server.NewServicePinger(embedder, "embedding"),
				server.NewServicePinger(generator, "generation"),
				server.NewStorePinger(store),
			}

			srv, err := server.New(pipeline, &server.Config{
				Host:      host,
				Port:      port,
				Logger:    log,
				Pingers:   pingers,
				RateLimit: getEnvFloat("SERVER_RATE_LIMIT", 0),
				RateBurst: getEnvInt("SERVER_RATE_BURST", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("host", host),
				slog.Int("port", port),
			)

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// serveAddr resolves the bind address. An explicitly set flag always wins;
// the SERVER_HOST/SERVER_PORT env vars only replace the flag defaults.
func serveAddr(cmd *cobra.Command, host string, port int) (string, int) {
	if !cmd.Flags().Changed("host") {
		host = getEnvOrDefault("SERVER_HOST", host)
	}
	if !cmd.Flags().Changed("port") {
		port = getEnvInt("SERVER_PORT", port)
	}
	return host, port
}
