package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/ckbfs/ledger/grpcledger"
	"xdao.co/ckbfs/ledger/ledgerconfig"
	"xdao.co/ckbfs/ledger/ledgerregistry"

	_ "xdao.co/ckbfs/ledger/badgerdb"
	_ "xdao.co/ckbfs/ledger/ckbrpc"
	_ "xdao.co/ckbfs/ledger/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("ckbfs-ledgerd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "Ledger backend name")
	configPath := fs.String("ledger-config", "", "Multi-backend ledger config file (YAML/JSON)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	maxMsg := fs.Int("max-msg-bytes", 0, "Max gRPC message size in bytes; 0 uses grpc defaults")
	logLevel := fs.String("log-level", "info", "Log level")

	ledgerregistry.RegisterFlags(fs, ledgerregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range ledgerregistry.List(ledgerregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	log := logrus.New()
	log.SetOutput(errOut)
	lvl, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --log-level: %v\n", err)
		return 2
	}
	log.SetLevel(lvl)

	var (
		srv     = grpcledger.Server{Logger: log}
		closeFn func() error
	)
	if *configPath != "" {
		lc, lerr := ledgerconfig.LoadFile(*configPath)
		if lerr != nil {
			fmt.Fprintln(errOut, lerr)
			return 2
		}
		preferred := ""
		if fs.Changed("backend") {
			preferred = *backend
		}
		srv.Ledger, closeFn, err = lc.Open(ledgerregistry.UsageDaemon, preferred)
	} else {
		srv.Ledger, closeFn, err = ledgerregistry.Open(*backend, ledgerregistry.UsageDaemon)
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.WithError(err).Error("listen failed")
		return 1
	}
	defer lis.Close()

	var opts []grpc.ServerOption
	if *maxMsg > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(*maxMsg), grpc.MaxSendMsgSize(*maxMsg))
	}
	s := grpc.NewServer(opts...)
	grpcledger.RegisterLedgerServer(s, &srv)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.WithFields(logrus.Fields{"addr": lis.Addr().String(), "backend": *backend}).Info("ckbfs-ledgerd listening")
	if err := s.Serve(lis); err != nil {
		log.WithError(err).Error("serve failed")
		return 1
	}
	return 0
}
