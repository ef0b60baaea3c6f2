package ckbrpc

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/ledgerregistry"
)

var (
	flagURL     string
	flagTimeout time.Duration
)

func init() {
	ledgerregistry.MustRegister(ledgerregistry.Backend{
		Name:        "ckb",
		Description: "CKB node JSON-RPC (read-only)",
		Usage:       ledgerregistry.UsageCLI | ledgerregistry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagURL, "ckb-rpc-url", "", "CKB node RPC URL (for --backend=ckb)")
			fs.DurationVar(&flagTimeout, "ckb-rpc-timeout", 10*time.Second, "Per-request timeout (for --backend=ckb)")
		},
		Open: func() (ledger.Ledger, func() error, error) {
			if flagURL == "" {
				return nil, nil, fmt.Errorf("missing --ckb-rpc-url")
			}
			n, err := New(Options{URL: flagURL, Timeout: flagTimeout})
			if err != nil {
				return nil, nil, err
			}
			return n, n.Close, nil
		},
	})
}
