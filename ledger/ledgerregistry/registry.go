package ledgerregistry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/ledger"
)

// Backend is a build-time plugin that can open a ledger.Ledger implementation.
//
// Backends typically register themselves in init():
//
//	ledgerregistry.MustRegister(ledgerregistry.Backend{ ... })
//
// The binary must import the backend package for registration to occur.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags adds backend-specific flags to fs.
	RegisterFlags func(fs *pflag.FlagSet)

	// Open constructs the Ledger using values parsed into flags registered by RegisterFlags.
	// It returns an optional close function.
	Open func() (ledger.Ledger, func() error, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}

	// openMu serializes OpenWithConfig, which rebinds the package-level flag
	// variables backends read in Open.
	openMu sync.Mutex
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("ledgerregistry: backend name is required")
	}
	if b.RegisterFlags == nil {
		return fmt.Errorf("ledgerregistry: backend %q missing RegisterFlags", b.Name)
	}
	if b.Open == nil {
		return fmt.Errorf("ledgerregistry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("ledgerregistry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("ledgerregistry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// RegisterFlags registers flags for all backends matching usage.
//
// This enables single-pass flag parsing (unknown flags are rejected).
func RegisterFlags(fs *pflag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		b.RegisterFlags(fs)
	}
}

func lookup(name string, usage Usage) (Backend, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return Backend{}, fmt.Errorf("unknown backend %q", name)
	}
	if !b.Usage.allows(usage) {
		return Backend{}, fmt.Errorf("backend %q not supported in this binary", name)
	}
	return b, nil
}

// Open opens the named backend if it exists and matches usage.
func Open(name string, usage Usage) (ledger.Ledger, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	return b.Open()
}

// OpenWithConfig opens the named backend with flag values taken from cfg
// (keys are flag names without the leading dashes). Flags absent from cfg
// keep their defaults.
func OpenWithConfig(name string, usage Usage, cfg map[string]string) (ledger.Ledger, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}

	openMu.Lock()
	defer openMu.Unlock()

	fs := pflag.NewFlagSet("ledger-"+name, pflag.ContinueOnError)
	b.RegisterFlags(fs)

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if fs.Lookup(k) == nil {
			return nil, nil, fmt.Errorf("backend %q: unknown config key %q", name, k)
		}
		if err := fs.Set(k, cfg[k]); err != nil {
			return nil, nil, fmt.Errorf("backend %q: config key %q: %w", name, k, err)
		}
	}
	return b.Open()
}
