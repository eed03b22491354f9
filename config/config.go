// Package config loads and validates the per-relay-instance configuration
// named in spec.md §6: one RelayConfig per domain, loaded from a YAML file
// with environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alphapulse/relay/protocol"
	"github.com/alphapulse/relay/relay"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RelayConfig is the on-disk/env shape of one relay instance's settings.
type RelayConfig struct {
	Domain     string `yaml:"domain"`
	SocketPath string `yaml:"socket_path"`

	Validation struct {
		Checksum bool `yaml:"checksum"`
		Audit    bool `yaml:"audit"`
	} `yaml:"validation"`

	Recovery struct {
		Threshold   uint64 `yaml:"threshold"`
		DefaultKind string `yaml:"default_kind"` // "retransmit" | "snapshot"
	} `yaml:"recovery"`

	Buffer struct {
		MaxMessages   int `yaml:"max_messages"`
		MaxAgeSeconds int `yaml:"max_age_seconds"`
	} `yaml:"buffer"`

	Backpressure struct {
		Policy    string `yaml:"policy"` // "drop_oldest" | "block_producer"
		HighWater int    `yaml:"high_water"`
	} `yaml:"backpressure"`

	SlowConsumerTimeoutSeconds int   `yaml:"slow_consumer_timeout_seconds"`
	CPUAffinity                []int `yaml:"cpu_affinity"`

	AuditPath string `yaml:"audit_path"`
	LogLevel  string `yaml:"log_level"`
}

// DefaultConfig returns the MarketData domain's defaults from spec.md §4.3,
// the same role node.DefaultConfig plays for the teacher's node.Config.
func DefaultConfig() RelayConfig {
	var cfg RelayConfig
	cfg.Domain = "market_data"
	cfg.SocketPath = "/tmp/alphapulse-market_data.sock"
	cfg.Validation.Checksum = false
	cfg.Validation.Audit = false
	cfg.Recovery.Threshold = 50
	cfg.Recovery.DefaultKind = "snapshot"
	cfg.Buffer.MaxMessages = 2048
	cfg.Buffer.MaxAgeSeconds = 5
	cfg.Backpressure.Policy = "drop_oldest"
	cfg.Backpressure.HighWater = 4096
	cfg.SlowConsumerTimeoutSeconds = 10
	cfg.LogLevel = "info"
	return cfg
}

// Load reads a YAML config file at path, then overlays any matching
// ALPHAPULSE_* environment variables (loaded first from a .env file in
// the working directory if present, the same godotenv.Load-then-os.Getenv idiom the pack
// uses for service config).
func Load(path string) (RelayConfig, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	_ = godotenv.Load() // optional .env overlay; absence is not an error

	applyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return RelayConfig{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *RelayConfig) {
	if v := os.Getenv("ALPHAPULSE_SOCKET_PATH"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("ALPHAPULSE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ALPHAPULSE_AUDIT_PATH"); v != "" {
		cfg.AuditPath = v
	}
	if v := os.Getenv("ALPHAPULSE_HIGH_WATER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backpressure.HighWater = n
		}
	}
}

var allowedLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {},
}

var allowedDomains = map[string]protocol.Domain{
	"market_data": protocol.DomainMarketData,
	"signal":      protocol.DomainSignal,
	"execution":   protocol.DomainExecution,
}

var allowedBackpressure = map[string]relay.BackpressurePolicy{
	"drop_oldest":    relay.DropOldest,
	"block_producer": relay.BlockProducer,
}

var allowedRecoveryKinds = map[string]protocol.RecoveryKind{
	"retransmit": protocol.RecoveryRetransmit,
	"snapshot":   protocol.RecoverySnapshot,
}

// Validate checks cfg against spec.md §6's named value constraints,
// mirroring the teacher's ValidateConfig/validateAddr shape: a battery of
// small checks returning the first failure wrapped with its field name.
func Validate(cfg RelayConfig) error {
	if _, ok := allowedDomains[cfg.Domain]; !ok {
		return fmt.Errorf("config: invalid domain %q", cfg.Domain)
	}
	if strings.TrimSpace(cfg.SocketPath) == "" {
		return errors.New("config: socket_path is required")
	}
	if _, ok := allowedRecoveryKinds[cfg.Recovery.DefaultKind]; !ok {
		return fmt.Errorf("config: invalid recovery.default_kind %q", cfg.Recovery.DefaultKind)
	}
	if cfg.Buffer.MaxMessages <= 0 {
		return errors.New("config: buffer.max_messages must be > 0")
	}
	if cfg.Buffer.MaxAgeSeconds <= 0 {
		return errors.New("config: buffer.max_age_seconds must be > 0")
	}
	if _, ok := allowedBackpressure[cfg.Backpressure.Policy]; !ok {
		return fmt.Errorf("config: invalid backpressure.policy %q", cfg.Backpressure.Policy)
	}
	if cfg.Backpressure.HighWater <= 0 {
		return errors.New("config: backpressure.high_water must be > 0")
	}
	if cfg.SlowConsumerTimeoutSeconds <= 0 {
		return errors.New("config: slow_consumer_timeout_seconds must be > 0")
	}
	if cfg.Validation.Audit && cfg.AuditPath == "" {
		return errors.New("config: audit_path is required when validation.audit is enabled")
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("config: invalid log_level %q", cfg.LogLevel)
	}
	for _, core := range cfg.CPUAffinity {
		if core < 0 {
			return fmt.Errorf("config: invalid cpu_affinity core id %d", core)
		}
	}
	return nil
}

// DomainValue resolves cfg's Domain field to its protocol.Domain value.
func (cfg RelayConfig) DomainValue() protocol.Domain { return allowedDomains[cfg.Domain] }

// ToPolicy builds a relay.Policy from cfg, overriding relay.DefaultPolicies'
// entry for this domain with any operator-supplied values.
func (cfg RelayConfig) ToPolicy() relay.Policy {
	p := relay.DefaultPolicies()[cfg.DomainValue()]
	p.ChecksumEnabled = cfg.Validation.Checksum
	p.AuditEnabled = cfg.Validation.Audit
	p.GapThreshold = cfg.Recovery.Threshold
	p.DefaultRecoveryKind = allowedRecoveryKinds[cfg.Recovery.DefaultKind]
	p.Backpressure = allowedBackpressure[cfg.Backpressure.Policy]
	p.HighWater = cfg.Backpressure.HighWater
	p.ReplayBufferMessages = cfg.Buffer.MaxMessages
	p.ReplayBufferMaxAgeSeconds = cfg.Buffer.MaxAgeSeconds
	p.SlowConsumerTimeoutSeconds = cfg.SlowConsumerTimeoutSeconds
	return p
}
