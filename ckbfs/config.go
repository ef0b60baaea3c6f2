package ckbfs

import (
	"fmt"
	"os"
	"strings"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"xdao.co/ckbfs/compliance"
)

const (
	// DefaultChunkSize is the witness payload size used when splitting content.
	DefaultChunkSize = 30 * 1024
	// DefaultFeeRate is in shannons per 1000 bytes of transaction.
	DefaultFeeRate = 1000
)

// Config carries the tunables for publishing and reconstruction. It is passed
// explicitly; the zero value is not usable, start from DefaultConfig.
type Config struct {
	ChunkSize int
	Version   Version
	Policy    compliance.ComplianceMode
	// MaxHops bounds chain traversal; 0 means unlimited.
	MaxHops    int
	FeeRate    uint64
	ProbeOrder []Version
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:  DefaultChunkSize,
		Version:    V3,
		Policy:     compliance.Permissive,
		FeeRate:    DefaultFeeRate,
		ProbeOrder: DefaultProbeOrder(),
	}
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return NewError(KindInvalidArgument, "CKBFS-CFG-002", fmt.Sprintf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if !c.Version.Valid() {
		return NewError(KindInvalidArgument, "CKBFS-CFG-001", "unknown protocol version")
	}
	if c.MaxHops < 0 {
		return NewError(KindInvalidArgument, "CKBFS-CFG-003", "max hops must not be negative")
	}
	for _, v := range c.ProbeOrder {
		if !v.Valid() {
			return NewError(KindInvalidArgument, "CKBFS-CFG-001", "unknown protocol version in probe order")
		}
	}
	return nil
}

type fileConfig struct {
	ChunkSize  string                     `yaml:"chunk_size"`
	Version    *Version                   `yaml:"version"`
	Policy     *compliance.ComplianceMode `yaml:"policy"`
	MaxHops    *int                       `yaml:"max_hops"`
	FeeRate    *uint64                    `yaml:"fee_rate"`
	ProbeOrder []Version                  `yaml:"probe_order"`
}

// ParseConfig overlays YAML (or JSON) onto DefaultConfig. chunk_size accepts
// human sizes such as "30KiB" or "64k".
//
//	chunk_size: 30KiB
//	version: v3
//	policy: strict
//	max_hops: 1000
//	probe_order: [v3, v2, v1]
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, WrapError(KindInvalidArgument, "CKBFS-CFG-004", "invalid config", err)
	}
	if s := strings.TrimSpace(fc.ChunkSize); s != "" {
		n, err := ParseSize(s)
		if err != nil {
			return cfg, err
		}
		cfg.ChunkSize = n
	}
	if fc.Version != nil {
		cfg.Version = *fc.Version
	}
	if fc.Policy != nil {
		cfg.Policy = *fc.Policy
	}
	if fc.MaxHops != nil {
		cfg.MaxHops = *fc.MaxHops
	}
	if fc.FeeRate != nil {
		cfg.FeeRate = *fc.FeeRate
	}
	if len(fc.ProbeOrder) > 0 {
		cfg.ProbeOrder = fc.ProbeOrder
	}
	return cfg, cfg.Validate()
}

// LoadConfigFile reads a config file; see ParseConfig.
func LoadConfigFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}
	return ParseConfig(b)
}

// ParseSize parses a byte size. Suffixes are binary (k = 1024).
func ParseSize(s string) (int, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, WrapError(KindInvalidArgument, "CKBFS-CFG-002", fmt.Sprintf("invalid size %q", s), err)
	}
	if n <= 0 || n > int64(^uint32(0)) {
		return 0, NewError(KindInvalidArgument, "CKBFS-CFG-002", fmt.Sprintf("size %q out of range", s))
	}
	return int(n), nil
}
