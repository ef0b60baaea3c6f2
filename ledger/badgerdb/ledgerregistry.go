package badgerdb

import (
	"fmt"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/ledgerregistry"
)

var (
	flagDir        string
	flagSyncWrites bool
)

func init() {
	ledgerregistry.MustRegister(ledgerregistry.Backend{
		Name:        "badger",
		Description: "Badger key-value transaction store (zstd-compressed)",
		Usage:       ledgerregistry.UsageCLI | ledgerregistry.UsageDaemon,
		RegisterFlags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagDir, "badger-dir", "", "Badger database directory (for --backend=badger)")
			fs.BoolVar(&flagSyncWrites, "badger-sync-writes", false, "fsync every commit (for --backend=badger)")
		},
		Open: func() (ledger.Ledger, func() error, error) {
			if flagDir == "" {
				return nil, nil, fmt.Errorf("missing --badger-dir")
			}
			l, err := Open(Options{Dir: flagDir, SyncWrites: flagSyncWrites})
			if err != nil {
				return nil, nil, err
			}
			return l, l.Close, nil
		},
	})
}
