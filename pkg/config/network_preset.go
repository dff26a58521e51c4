// Copyright 2025 SP Consortium
//
// Network preset loader — per-network parameters (genesis validators,
// bootstrap peers, consensus sizing, database/security defaults) loaded
// from YAML, with ${VAR_NAME} environment substitution. Adapted from the
// teacher's anchor-config YAML loader, generalized from Ethereum/Accumulate
// contract settings to consortium chain genesis parameters.
package config

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var embeddedPresets embed.FS

// NetworkName enumerates the networks the `start --network` flag accepts,
// per spec §6.
type NetworkName string

const (
	NetworkTMobile    NetworkName = "tmobile"
	NetworkVodafone   NetworkName = "vodafone"
	NetworkOrange     NetworkName = "orange"
	NetworkConsortium NetworkName = "consortium"
	NetworkDevnet     NetworkName = "devnet"
	NetworkTestnet    NetworkName = "testnet"
)

// ValidNetworkName reports whether name is one of the six accepted
// network names.
func ValidNetworkName(name string) bool {
	switch NetworkName(name) {
	case NetworkTMobile, NetworkVodafone, NetworkOrange, NetworkConsortium, NetworkDevnet, NetworkTestnet:
		return true
	}
	return false
}

// ValidatorPreset names one genesis validator's identity and network address.
type ValidatorPreset struct {
	Operator   string `yaml:"operator"`
	Country    string `yaml:"country"`
	BLSPubKey  string `yaml:"bls_public_key"` // hex-encoded compressed G2 point
	Endpoint   string `yaml:"endpoint"`
	StakeCents uint64 `yaml:"stake_cents"`
}

// NetworkPreset holds the genesis/consensus/database/security parameters
// for one named consortium network.
type NetworkPreset struct {
	Environment string `yaml:"environment"`
	ChainID     string `yaml:"chain_id"`

	Genesis   GenesisSettings   `yaml:"genesis"`
	Consensus ConsensusSettings `yaml:"consensus"`
	P2P       P2PSettings       `yaml:"p2p"`
	Database  DatabaseSettings  `yaml:"database"`
	Security  SecuritySettings  `yaml:"security"`
	Monitoring MonitoringSettings `yaml:"monitoring"`
}

// GenesisSettings describes the validator set a node bootstraps from at
// block 0 (before the first election block may rotate it).
type GenesisSettings struct {
	Validators []ValidatorPreset `yaml:"validators"`
}

// ConsensusSettings sizes the BFT protocol (C5) for this network.
type ConsensusSettings struct {
	ValidatorCount   int      `yaml:"validator_count"`
	QuorumSize       int      `yaml:"quorum_size"`
	RoundTimeout     Duration `yaml:"round_timeout"`
	BLSDomainConsensus string `yaml:"bls_domain_consensus"`
}

// P2PSettings configures the gossipsub transport (C6).
type P2PSettings struct {
	Port            int      `yaml:"port"`
	MaxPeers        int      `yaml:"max_peers"`
	BootstrapPeers  []string `yaml:"bootstrap_peers"`
}

// DatabaseSettings contains database configuration.
type DatabaseSettings struct {
	URL            string   `yaml:"url"`
	MaxConnections int      `yaml:"max_connections"`
	MinConnections int      `yaml:"min_connections"`
	MaxIdleTime    Duration `yaml:"max_idle_time"`
	MaxLifetime    Duration `yaml:"max_lifetime"`
	Required       bool     `yaml:"required"`
	AutoMigrate    bool     `yaml:"auto_migrate"`
}

// SecuritySettings contains transport and auth security configuration.
type SecuritySettings struct {
	TLS       TLSSettings       `yaml:"tls"`
	RateLimit RateLimitSettings `yaml:"rate_limit"`
	CORS      CORSSettings      `yaml:"cors"`
}

// TLSSettings contains TLS configuration.
type TLSSettings struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RateLimitSettings contains rate limiting configuration.
type RateLimitSettings struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// CORSSettings contains CORS configuration.
type CORSSettings struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// MonitoringSettings contains observability configuration.
type MonitoringSettings struct {
	Metrics MetricsSettings `yaml:"metrics"`
	Logging LoggingSettings `yaml:"logging"`
}

// MetricsSettings contains Prometheus metrics configuration.
type MetricsSettings struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingSettings contains logging configuration.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// LoadPreset loads the preset for name, either from the embedded default
// (presets/<name>.yaml, shipped with the binary) or, if override is
// non-empty, from a file on disk.
func LoadPreset(name NetworkName, override string) (*NetworkPreset, error) {
	if !ValidNetworkName(string(name)) {
		return nil, fmt.Errorf("unknown network %q", name)
	}

	var data []byte
	var err error
	if override != "" {
		data, err = os.ReadFile(override)
		if err != nil {
			return nil, fmt.Errorf("read network preset %s: %w", override, err)
		}
	} else {
		data, err = embeddedPresets.ReadFile("presets/" + string(name) + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("load embedded preset for %s: %w", name, err)
		}
	}

	expanded := substituteEnvVars(string(data))

	var preset NetworkPreset
	if err := yaml.Unmarshal([]byte(expanded), &preset); err != nil {
		return nil, fmt.Errorf("parse network preset for %s: %w", name, err)
	}
	preset.applyDefaults()
	return &preset, nil
}

func (p *NetworkPreset) applyDefaults() {
	if p.Consensus.ValidatorCount == 0 {
		p.Consensus.ValidatorCount = len(p.Genesis.Validators)
	}
	if p.Consensus.QuorumSize == 0 && p.Consensus.ValidatorCount > 0 {
		p.Consensus.QuorumSize = (2*p.Consensus.ValidatorCount)/3 + 1
	}
	if p.Consensus.RoundTimeout == 0 {
		p.Consensus.RoundTimeout = Duration(30 * time.Second)
	}
	if p.Consensus.BLSDomainConsensus == "" {
		p.Consensus.BLSDomainConsensus = "SP_CDR_CONSORTIUM_BLS_SIG"
	}
	if p.P2P.MaxPeers == 0 {
		p.P2P.MaxPeers = 50
	}
	if p.Database.MaxConnections == 0 {
		p.Database.MaxConnections = 25
	}
	if p.Database.MinConnections == 0 {
		p.Database.MinConnections = 5
	}
	if p.Database.MaxIdleTime == 0 {
		p.Database.MaxIdleTime = Duration(5 * time.Minute)
	}
	if p.Database.MaxLifetime == 0 {
		p.Database.MaxLifetime = Duration(time.Hour)
	}
	if p.Monitoring.Metrics.Port == 0 {
		p.Monitoring.Metrics.Port = 9090
	}
	if p.Monitoring.Logging.Level == "" {
		p.Monitoring.Logging.Level = "info"
	}
	if p.Monitoring.Logging.Format == "" {
		p.Monitoring.Logging.Format = "text"
	}
}

// Validate checks a preset has the minimum fields needed to start a node.
func (p *NetworkPreset) Validate() error {
	var errs []string
	if p.ChainID == "" {
		errs = append(errs, "chain_id is required")
	}
	if len(p.Genesis.Validators) == 0 {
		errs = append(errs, "genesis.validators must list at least one validator")
	}
	if p.Consensus.QuorumSize > p.Consensus.ValidatorCount {
		errs = append(errs, "consensus.quorum_size cannot exceed validator_count")
	}
	if p.Environment == "production" && !p.Security.TLS.Enabled {
		errs = append(errs, "security.tls.enabled must be true for production")
	}
	if len(errs) > 0 {
		return fmt.Errorf("network preset validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
