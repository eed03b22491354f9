// Command relayd runs one AlphaPulse relay instance for a single domain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alphapulse/relay/config"
	"github.com/alphapulse/relay/relay"
	"github.com/alphapulse/relay/telemetry"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	var metricsAddr string

	root := &cobra.Command{
		Use:   "relayd",
		Short: "run an AlphaPulse relay for one domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(configPath, metricsAddr)
		},
	}
	root.Flags().StringVar(&configPath, "config", "relay.yaml", "path to relay config YAML")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRelay(configPath, metricsAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("relayd: %w", err)
	}

	log := telemetry.NewLogger(cfg.LogLevel, "relayd").WithField("domain", cfg.Domain)
	if len(cfg.CPUAffinity) > 0 {
		// Advisory only: the Go scheduler doesn't expose OS-level thread
		// pinning, so cpu_affinity is logged for operators to act on
		// externally (e.g. via taskset) rather than applied in-process.
		log.WithField("cpu_affinity", cfg.CPUAffinity).Info("cpu_affinity configured (advisory only)")
	}

	var audit *relay.AuditTrail
	if cfg.Validation.Audit {
		audit, err = relay.OpenAuditTrail(cfg.AuditPath)
		if err != nil {
			return fmt.Errorf("relayd: open audit trail: %w", err)
		}
		defer audit.Close()
	}

	srv := relay.NewServer(cfg.ToPolicy(), audit, log)

	metrics := telemetry.NewMetrics(cfg.Domain)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Serve(ctx, metricsAddr, log)

	log.WithField("socket_path", cfg.SocketPath).Info("relayd starting")
	err = srv.Serve(ctx, "unix", cfg.SocketPath)
	log.Info("relayd stopped")
	return err
}
