package resolver

import (
	"github.com/sirupsen/logrus"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/compliance"
)

// Options controls reconstruction behavior.
//
// Default behavior is Permissive, unlimited hops, newest-first version
// probing and a default-sized transaction cache when Options{} is used.
type Options struct {
	Mode compliance.ComplianceMode
	// MaxHops bounds the number of transactions visited; 0 means unlimited.
	MaxHops int
	// ProbeOrder is the version fallback order for cell data of unknown layout.
	ProbeOrder []ckbfs.Version
	// CacheSize is the number of fetched transactions kept in an LRU.
	// 0 selects ledger.DefaultCacheSize; a negative value disables caching.
	CacheSize int
	Logger    *logrus.Logger
}

// OptionsFromConfig maps the shared config onto resolver options.
func OptionsFromConfig(cfg ckbfs.Config) Options {
	return Options{
		Mode:       cfg.Policy,
		MaxHops:    cfg.MaxHops,
		ProbeOrder: cfg.ProbeOrder,
	}
}

func (o Options) withDefaults() Options {
	if len(o.ProbeOrder) == 0 {
		o.ProbeOrder = ckbfs.DefaultProbeOrder()
	} else {
		o.ProbeOrder = append([]ckbfs.Version(nil), o.ProbeOrder...)
	}
	if o.Logger == nil {
		o.Logger = logrus.New()
	}
	return o
}
