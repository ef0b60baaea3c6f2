package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/model"
	"xdao.co/ckbfs/publisher"
	"xdao.co/ckbfs/resolver"
)

func cmdPublish(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("publish", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var sf signerFlags
	var contentType string
	var filename string
	lf.register(fs)
	sf.register(fs)
	fs.StringVar(&contentType, "content-type", "", "Content type (defaults to the file extension's MIME type)")
	fs.StringVar(&filename, "filename", "", "Stored filename (defaults to the file's base name)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs publish [flags] <file>")
		return 2
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(path), err)
		return 1
	}
	if filename == "" {
		filename = filepath.Base(path)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	pub, closeFn, code := openPublisher(fs, &lf, &sf, errOut)
	if pub == nil {
		return code
	}
	defer closeQuietly(closeFn)

	p, err := pub.Publish(context.Background(), publisher.File{Content: content, ContentType: contentType, Filename: filename})
	if err != nil {
		printErr(errOut, "publish", err)
		return exitCode(err)
	}
	_, _ = fmt.Fprintln(out, p.Ref.String())
	return 0
}

func cmdAppend(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("append", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var sf signerFlags
	var refStr string
	lf.register(fs)
	sf.register(fs)
	fs.StringVar(&refStr, "ref", "", "Reference of the file version to append to")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if refStr == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs append [flags] --ref <ref> <file>")
		return 2
	}
	ref, err := ckbfs.ParseRef(refStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --ref: %v\n", err)
		return 2
	}
	content, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}

	pub, closeFn, code := openPublisher(fs, &lf, &sf, errOut)
	if pub == nil {
		return code
	}
	defer closeQuietly(closeFn)

	p, err := pub.Append(context.Background(), ref, content)
	if err != nil {
		printErr(errOut, "append", err)
		return exitCode(err)
	}
	_, _ = fmt.Fprintln(out, p.Ref.String())
	return 0
}

func openPublisher(fs *pflag.FlagSet, lf *ledgerFlags, sf *signerFlags, errOut io.Writer) (*publisher.Publisher, func() error, int) {
	cfg, err := lf.config()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return nil, nil, 2
	}
	signer, err := sf.signer()
	if err != nil {
		fmt.Fprintf(errOut, "invalid signer: %v\n", err)
		return nil, nil, 2
	}
	l, closeFn, err := lf.open(fs)
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return nil, nil, 2
	}
	log := lf.logger(errOut)
	asm, err := newDevnet(l, signer, log)
	if err == nil {
		var pub *publisher.Publisher
		if pub, err = publisher.New(l, asm, cfg, log); err == nil {
			return pub, closeFn, 0
		}
	}
	closeQuietly(closeFn)
	fmt.Fprintf(errOut, "publisher: %v\n", err)
	return nil, nil, 1
}

func openResolver(fs *pflag.FlagSet, lf *ledgerFlags, errOut io.Writer) (*resolver.Resolver, func() error, int) {
	l, closeFn, err := lf.open(fs)
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return nil, nil, 2
	}
	r, code := openResolverOn(l, lf, errOut)
	if r == nil {
		closeQuietly(closeFn)
		return nil, nil, code
	}
	return r, closeFn, 0
}

func openResolverOn(l ledger.Fetcher, lf *ledgerFlags, errOut io.Writer) (*resolver.Resolver, int) {
	cfg, err := lf.config()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return nil, 2
	}
	opts := resolver.OptionsFromConfig(cfg)
	opts.Logger = lf.logger(errOut)
	r, err := resolver.New(l, opts)
	if err != nil {
		fmt.Fprintf(errOut, "resolver: %v\n", err)
		return nil, 1
	}
	return r, 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var outPath string
	var report bool
	lf.register(fs)
	fs.StringVarP(&outPath, "out", "o", "", "Write content to this file instead of stdout")
	fs.BoolVar(&report, "report", false, "Print the reconstruction report as JSON to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs get [flags] <ref>")
		return 2
	}
	ref, err := ckbfs.ParseRef(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid ref: %v\n", err)
		return 2
	}

	r, closeFn, code := openResolver(fs, &lf, errOut)
	if r == nil {
		return code
	}
	defer closeQuietly(closeFn)

	res, err := r.Resolve(context.Background(), ref)
	if err != nil {
		printErr(errOut, "get", err)
		return exitCode(err)
	}
	rep, err := model.FromResult(ref, res)
	if err != nil {
		printErr(errOut, "get", err)
		return 1
	}

	if outPath == "" {
		_, _ = out.Write(res.Content)
		fmt.Fprintf(errOut, "Content-CID: %s\n", rep.ContentCID)
	} else {
		if err := os.WriteFile(outPath, res.Content, 0o644); err != nil {
			fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
			return 1
		}
		_, _ = fmt.Fprintln(out, rep.ContentCID)
	}
	if !res.Verified {
		fmt.Fprintf(errOut, "warning: content checksum not verified (%d warnings)\n", len(res.Warnings))
	}
	if report {
		if err := writeJSON(errOut, rep); err != nil {
			return 1
		}
	}
	return 0
}

func cmdInfo(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var resolve bool
	lf.register(fs)
	fs.BoolVar(&resolve, "resolve", false, "Reconstruct the file and print the full report")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs info [flags] <ref>")
		return 2
	}
	ref, err := ckbfs.ParseRef(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid ref: %v\n", err)
		return 2
	}

	r, closeFn, code := openResolver(fs, &lf, errOut)
	if r == nil {
		return code
	}
	defer closeQuietly(closeFn)

	ctx := context.Background()
	var v any
	if resolve {
		res, err := r.Resolve(ctx, ref)
		if err != nil {
			printErr(errOut, "info", err)
			return exitCode(err)
		}
		if v, err = model.FromResult(ref, res); err != nil {
			printErr(errOut, "info", err)
			return 1
		}
	} else {
		rec, err := r.Record(ctx, ref)
		if err != nil {
			printErr(errOut, "info", err)
			return exitCode(err)
		}
		v = model.FromRecord(&ref, rec)
	}
	if err := writeJSON(out, v); err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
