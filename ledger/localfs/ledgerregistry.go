package localfs

import (
	"fmt"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/ledgerregistry"
)

var (
	flagLocalDir string
)

func init() {
	ledgerregistry.MustRegister(ledgerregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem transaction store (directory)",
		Usage:       ledgerregistry.UsageCLI | ledgerregistry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "LocalFS ledger directory (for --backend=localfs)")
		},
		Open: func() (ledger.Ledger, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing --localfs-dir")
			}
			l, err := New(flagLocalDir)
			return l, nil, err
		},
	})
}
