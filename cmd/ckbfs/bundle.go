package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/bundle"
)

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: ckbfs bundle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

// cmdBundleExport writes every transaction a file version is built from.
func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("bundle export", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var outPath string
	lf.register(fs)
	fs.StringVarP(&outPath, "out", "o", "", "Bundle file to write (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs bundle export [flags] [--out <file>] <ref>")
		return 2
	}
	ref, err := ckbfs.ParseRef(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid ref: %v\n", err)
		return 2
	}

	l, closeFn, err := lf.open(fs)
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 2
	}
	defer closeQuietly(closeFn)
	r, code := openResolverOn(l, &lf, errOut)
	if r == nil {
		return code
	}

	ctx := context.Background()
	res, err := r.Resolve(ctx, ref)
	if err != nil {
		printErr(errOut, "bundle export", err)
		return exitCode(err)
	}
	hashes := make([]ledger.TxHash, 0, len(res.Hops))
	for _, h := range res.Hops {
		hashes = append(hashes, h.TxHash)
	}

	w := out
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	opts := bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]ledger.TxHash{ref.String(): ref.TxHash},
	}
	if err := bundle.Export(ctx, w, l, hashes, opts); err != nil {
		printErr(errOut, "bundle export", err)
		return 1
	}
	fmt.Fprintf(errOut, "exported %d transactions\n", len(hashes))
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("bundle import", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var ignoreUnknown bool
	lf.register(fs)
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip unknown bundle entries instead of failing")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs bundle import [flags] <file>")
		return 2
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open: %v\n", err)
		return 1
	}
	defer f.Close()

	l, closeFn, err := lf.open(fs)
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 2
	}
	defer closeQuietly(closeFn)

	hashes, err := bundle.ImportWithOptions(context.Background(), f, l, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
	if err != nil {
		printErr(errOut, "bundle import", err)
		return 1
	}
	for _, h := range hashes {
		_, _ = fmt.Fprintln(out, h.String())
	}
	return 0
}
