package relay

import "fmt"

// SourceType identifies a producer class (exchange collector, strategy
// engine, execution engine). The mapping to a canonical topic is a static
// external table (spec §6 "Source-type registry"); adding a producer class
// means adding a row here, never a protocol change.
type SourceType uint8

// sourceTopics is the static source_type -> topic table. Topic names follow
// the "<domain>_<source_name>" convention from spec §3.
var sourceTopics = map[SourceType]string{
	1: "market_data_coinbase",
	2: "market_data_kraken",
	3: "market_data_binance",
	4: "market_data_polygon",
	5: "market_data_arbitrum",
	20: "signal_arbitrage",
	21: "signal_identity",
	40: "execution_engine",
}

// TopicOf resolves sourceType to its canonical topic string, or reports
// false if sourceType has no registry entry.
func TopicOf(sourceType uint8) (string, bool) {
	t, ok := sourceTopics[SourceType(sourceType)]
	return t, ok
}

// TopicOrDefault resolves sourceType to a topic, synthesizing
// "unknown_<n>" for an unregistered source_type rather than failing the
// ingestion path outright — an unrecognized producer class is fanned out
// under the synthesized topic, not dropped.
func TopicOrDefault(sourceType uint8) string {
	if t, ok := TopicOf(sourceType); ok {
		return t
	}
	return fmt.Sprintf("unknown_%d", sourceType)
}

// RegisterTopic adds or overrides a source_type -> topic mapping. Intended
// for operator configuration at startup, not runtime mutation from the hot
// path.
func RegisterTopic(sourceType uint8, topic string) {
	sourceTopics[SourceType(sourceType)] = topic
}
