package relay

import "testing"

func TestConsumerStateEmptyTopicsMeansAll(t *testing.T) {
	cs := NewConsumerState("c1")
	if !cs.Subscribed("anything") {
		t.Fatalf("empty subscription set should match every topic")
	}
}

func TestConsumerStateSetTopicsOverwrites(t *testing.T) {
	cs := NewConsumerState("c1")
	cs.SetTopics([]string{"market_data_kraken"})
	if !cs.Subscribed("market_data_kraken") {
		t.Fatalf("expected subscription to market_data_kraken")
	}
	if cs.Subscribed("market_data_polygon") {
		t.Fatalf("did not expect subscription to market_data_polygon")
	}

	cs.SetTopics([]string{"market_data_polygon"})
	if cs.Subscribed("market_data_kraken") {
		t.Fatalf("SetTopics should overwrite, not merge, the subscription set")
	}
	if !cs.Subscribed("market_data_polygon") {
		t.Fatalf("expected subscription to market_data_polygon after overwrite")
	}
}

func TestConsumerStateLedgerForIsStablePerSourceType(t *testing.T) {
	cs := NewConsumerState("c1")
	l1 := cs.LedgerFor(2)
	l2 := cs.LedgerFor(2)
	if l1 != l2 {
		t.Fatalf("LedgerFor should return the same ledger for repeated calls with the same source_type")
	}
	l3 := cs.LedgerFor(3)
	if l3 == l1 {
		t.Fatalf("LedgerFor should return distinct ledgers for distinct source_types")
	}
}
