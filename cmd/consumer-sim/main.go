// Command consumer-sim subscribes to a relay and logs every event it
// receives, for local end-to-end testing of the relay and collector.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alphapulse/relay/consumer"
	"github.com/alphapulse/relay/telemetry"
	"github.com/spf13/cobra"
)

func main() {
	var network, address, id, logLevel string
	var topics []string

	root := &cobra.Command{
		Use:   "consumer-sim",
		Short: "subscribe to an AlphaPulse relay and log received events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(network, address, id, logLevel, topics)
		},
	}
	root.Flags().StringVar(&network, "network", "unix", "relay transport network")
	root.Flags().StringVar(&address, "address", "/tmp/alphapulse-market_data.sock", "relay socket address")
	root.Flags().StringVar(&id, "id", "consumer-sim", "consumer id carried on recovery requests")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	root.Flags().StringSliceVar(&topics, "topics", nil, "topics to subscribe to (empty = all)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(network, address, id, logLevel string, topics []string) error {
	log := telemetry.NewLogger(logLevel, "consumer-sim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := consumer.Dial(ctx, consumer.Options{
		Network: network,
		Address: address,
		Topics:  topics,
		ID:      id,
		Log:     log,
	})
	if err != nil {
		return fmt.Errorf("consumer-sim: %w", err)
	}
	defer sess.Close(context.Background())

	log.WithField("topics", strings.Join(topics, ",")).Info("consumer-sim subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sess.Events():
			if !ok {
				return nil
			}
			log.WithFields(map[string]interface{}{
				"domain":      ev.Header.RelayDomain,
				"source_type": ev.Header.SourceType,
				"sequence":    ev.Header.Sequence,
			}).Info("event received")
		case gap, ok := <-sess.Gaps():
			if !ok {
				return nil
			}
			log.WithFields(map[string]interface{}{
				"source_type": gap.SourceType,
				"start":       gap.Start,
				"end":         gap.End,
			}).Warn("sequence gap detected")
		case reset, ok := <-sess.Resets():
			if !ok {
				return nil
			}
			log.WithField("source_type", reset.SourceType).Warn("producer sequence reset")
		}
	}
}
