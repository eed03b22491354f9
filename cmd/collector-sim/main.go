// Command collector-sim publishes synthetic trades to a relay, for local
// end-to-end testing of the relay and consumer without a real exchange
// feed.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alphapulse/relay/protocol"

	"github.com/alphapulse/relay/collector"
	"github.com/spf13/cobra"
)

func main() {
	var network, address string
	var sourceType int
	var instrumentID uint64
	var interval time.Duration
	var count int

	root := &cobra.Command{
		Use:   "collector-sim",
		Short: "publish synthetic trades to an AlphaPulse relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(network, address, uint8(sourceType), instrumentID, interval, count)
		},
	}
	root.Flags().StringVar(&network, "network", "unix", "relay transport network")
	root.Flags().StringVar(&address, "address", "/tmp/alphapulse-market_data.sock", "relay socket address")
	root.Flags().IntVar(&sourceType, "source-type", 2, "producer source_type id")
	root.Flags().Uint64Var(&instrumentID, "instrument-id", 1, "synthetic instrument id")
	root.Flags().DurationVar(&interval, "interval", time.Second, "delay between synthetic trades")
	root.Flags().IntVar(&count, "count", 0, "number of trades to send (0 = unbounded)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(network, address string, sourceType uint8, instrumentID uint64, interval time.Duration, count int) error {
	p, err := collector.DialProducer(network, address, protocol.DomainMarketData, sourceType)
	if err != nil {
		return fmt.Errorf("collector-sim: %w", err)
	}
	defer p.Close()

	price := int64(10_000_00000000) // 10000.00000000 at 8 implied decimals
	sent := 0
	for count == 0 || sent < count {
		trade := protocol.TradePayload{
			InstrumentID: instrumentID,
			Price:        price,
			Volume:       1_00000000,
			Side:         protocol.SideBuy,
			TimestampNS:  uint64(time.Now().UnixNano()),
		}
		if err := p.SendTrade(trade); err != nil {
			return fmt.Errorf("collector-sim: send trade: %w", err)
		}
		sent++
		price += 1_00000000 // wander the synthetic price upward
		time.Sleep(interval)
	}
	return nil
}
