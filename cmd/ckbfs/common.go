package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"xdao.co/ckbfs/assembler"
	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/compliance"
	"xdao.co/ckbfs/keys"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/ledgerconfig"
	"xdao.co/ckbfs/ledger/ledgerregistry"
	"xdao.co/ckbfs/model"
)

// ledgerFlags are shared by every command that reads or writes files.
type ledgerFlags struct {
	backend      string
	ledgerConfig string
	configPath   string
	version      string
	chunkSize    string
	mode         string
	maxHops      int
	verbose      bool
}

func (f *ledgerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.backend, "backend", "localfs", "Ledger backend name")
	fs.StringVar(&f.ledgerConfig, "ledger-config", "", "Multi-backend ledger config file (YAML/JSON)")
	fs.StringVar(&f.configPath, "config", "", "CKBFS config file (YAML/JSON)")
	fs.StringVar(&f.version, "version", "", "Protocol version for new files: v1, v2 or v3")
	fs.StringVar(&f.chunkSize, "chunk-size", "", "Witness chunk size, e.g. 30KiB")
	fs.StringVar(&f.mode, "mode", "", "Compliance mode: permissive or strict")
	fs.IntVar(&f.maxHops, "max-hops", -1, "Maximum transactions visited while reconstructing (0 = unlimited)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Debug logging")
	ledgerregistry.RegisterFlags(fs, ledgerregistry.UsageCLI)
}

func (f *ledgerFlags) config() (ckbfs.Config, error) {
	cfg := ckbfs.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = ckbfs.LoadConfigFile(f.configPath); err != nil {
			return cfg, fmt.Errorf("--config: %w", err)
		}
	}
	if f.version != "" {
		v, err := ckbfs.ParseVersion(f.version)
		if err != nil {
			return cfg, fmt.Errorf("--version: %w", err)
		}
		cfg.Version = v
	}
	if f.chunkSize != "" {
		n, err := ckbfs.ParseSize(f.chunkSize)
		if err != nil {
			return cfg, fmt.Errorf("--chunk-size: %w", err)
		}
		cfg.ChunkSize = n
	}
	if f.mode != "" {
		m, err := compliance.Parse(f.mode)
		if err != nil {
			return cfg, fmt.Errorf("--mode: %w", err)
		}
		cfg.Policy = m
	}
	if f.maxHops >= 0 {
		cfg.MaxHops = f.maxHops
	}
	return cfg, cfg.Validate()
}

// open opens the configured ledger. With --ledger-config, an explicit
// --backend only picks which configured backend goes first.
func (f *ledgerFlags) open(fs *pflag.FlagSet) (ledger.Ledger, func() error, error) {
	if f.ledgerConfig != "" {
		lc, err := ledgerconfig.LoadFile(f.ledgerConfig)
		if err != nil {
			return nil, nil, err
		}
		preferred := ""
		if fs.Changed("backend") {
			preferred = f.backend
		}
		return lc.Open(ledgerregistry.UsageCLI, preferred)
	}
	return ledgerregistry.Open(f.backend, ledgerregistry.UsageCLI)
}

func (f *ledgerFlags) logger(errOut io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(errOut)
	if f.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// signerFlags pick the owner key for publish and append.
type signerFlags struct {
	seedHex string
	name    string
	role    string
	keyFile string
}

func (f *signerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.seedHex, "seed-hex", "", "Owner seed as [<alg>:]<64 hex chars>")
	fs.StringVar(&f.name, "signer", "", "Use a stored key by name (from 'ckbfs key init')")
	fs.StringVar(&f.role, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&f.keyFile, "key-file", "", "Path to a key file created by 'ckbfs key init/derive'")
}

// signer returns nil when no signer flag is set.
func (f *signerFlags) signer() (keys.Signer, error) {
	set := 0
	for _, s := range []string{f.seedHex, f.name, f.keyFile} {
		if s != "" {
			set++
		}
	}
	switch {
	case set == 0:
		if f.role != "" {
			return nil, errors.New("--signer-role requires --signer")
		}
		return nil, nil
	case set > 1:
		return nil, errors.New("conflicting signer flags: use one of --seed-hex, --signer, --key-file")
	}
	ks, err := keys.CreateKeyStore(keyDir)
	if err != nil {
		return nil, err
	}
	return ks.LoadSigner(f.seedHex, f.name, f.role, f.keyFile)
}

func newDevnet(l ledger.Ledger, s keys.Signer, log *logrus.Logger) (*assembler.Devnet, error) {
	return assembler.NewDevnet(l, assembler.DevnetOptions{Signer: s, Logger: log})
}

func closeQuietly(closeFn func() error) {
	if closeFn != nil {
		_ = closeFn()
	}
}

// exitCode reports usage problems as 2 and everything else as 1.
func exitCode(err error) int {
	if ce := model.FromError(err); ce != nil && ce.Code == model.ErrInvalidRequest {
		return 2
	}
	return 1
}

func printErr(errOut io.Writer, what string, err error) {
	fmt.Fprintf(errOut, "%s: %v\n", what, model.FromError(err))
}
