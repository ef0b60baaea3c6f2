package ledgerconfig

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/ledgerregistry"
)

// Config describes how to open one or more ledger backends via ledgerregistry.
//
// Callers still need to link desired backend plugins via blank imports.
//
// WritePolicy values:
// - "first" (default): commit only to the first backend; reads fall back in order
// - "all": commit to all backends and require hash equality (see ledger.ReplicatingLedger)
//
// Example:
//
//	write_policy: all
//	backends:
//	  - name: localfs
//	    config:
//	      localfs-dir: /tmp/ckbfs
//	  - name: badger
//	    id: cache
//	    config:
//	      badger-dir: /tmp/ckbfs-badger
type Config struct {
	WritePolicy string          `yaml:"write_policy,omitempty" json:"write_policy,omitempty"`
	Backends    []BackendConfig `yaml:"backends" json:"backends"`
}

type BackendConfig struct {
	// Name is the ledgerregistry backend name to open (e.g. "grpc", "localfs", "badger").
	Name string `yaml:"name" json:"name"`
	// ID is an optional stable alias used in per-backend hash maps.
	// If empty, Name is used.
	ID     string            `yaml:"id,omitempty" json:"id,omitempty"`
	Config map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

// LoadFile reads a YAML (or JSON, which is valid YAML) config file.
func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("ledgerconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("ledgerconfig: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("ledgerconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("ledgerconfig: backend name is required")
		}
		id := b.id()
		if _, ok := seen[id]; ok {
			return fmt.Errorf("ledgerconfig: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("ledgerconfig: invalid write_policy %q", c.WritePolicy)
	}
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// Open opens a ledger per config.
//
// If preferredBackend is non-empty, backends are reordered so preferredBackend
// is first (and thus used for commits when WritePolicy=="first").
func (c Config) Open(usage ledgerregistry.Usage, preferredBackend string) (ledger.Ledger, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferredBackend != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferredBackend || ordered[i].ID == preferredBackend {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("ledgerconfig: preferred backend %q not found in config", preferredBackend)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]ledger.NamedLedger, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range ordered {
		l, closeFn, err := ledgerregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		named = append(named, ledger.NamedLedger{Name: b.id(), Ledger: l})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Ledger, closeAll, nil
	}

	switch c.WritePolicy {
	case "", "first":
		backends := make([]ledger.Ledger, 0, len(named))
		for _, n := range named {
			backends = append(backends, n.Ledger)
		}
		return ledger.MultiLedger{Backends: backends}, closeAll, nil
	default:
		return ledger.ReplicatingLedger{Backends: named}, closeAll, nil
	}
}
