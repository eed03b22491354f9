package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alphapulse/relay/protocol"
	"github.com/alphapulse/relay/relay"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, `
domain: signal
socket_path: /tmp/alphapulse-signal.sock
validation:
  checksum: true
  audit: false
recovery:
  threshold: 100
  default_kind: retransmit
buffer:
  max_messages: 16384
  max_age_seconds: 60
backpressure:
  policy: block_producer
  high_water: 8192
slow_consumer_timeout_seconds: 30
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DomainValue() != protocol.DomainSignal {
		t.Fatalf("expected signal domain")
	}
	if !cfg.Validation.Checksum {
		t.Fatalf("expected checksum validation enabled")
	}

	policy := cfg.ToPolicy()
	if policy.Backpressure != relay.BlockProducer {
		t.Fatalf("expected BlockProducer backpressure, got %v", policy.Backpressure)
	}
	if policy.HighWater != 8192 {
		t.Fatalf("expected high_water 8192, got %d", policy.HighWater)
	}
	if policy.GapThreshold != 100 {
		t.Fatalf("expected gap threshold 100, got %d", policy.GapThreshold)
	}
}

func TestLoadRejectsInvalidDomain(t *testing.T) {
	path := writeConfigFile(t, `
domain: not_a_domain
socket_path: /tmp/x.sock
recovery:
  default_kind: snapshot
buffer:
  max_messages: 1
  max_age_seconds: 1
backpressure:
  policy: drop_oldest
  high_water: 1
slow_consumer_timeout_seconds: 1
log_level: info
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for an invalid domain")
	}
}

func TestValidateRequiresAuditPathWhenAuditEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Validation.Audit = true
	cfg.AuditPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected an error when audit is enabled without an audit_path")
	}
	cfg.AuditPath = "/tmp/audit.db"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error once audit_path is set: %v", err)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("DefaultConfig should validate cleanly: %v", err)
	}
}
