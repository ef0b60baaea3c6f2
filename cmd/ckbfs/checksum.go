package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"xdao.co/ckbfs/checksum"
	"xdao.co/ckbfs/ledger/ledgerregistry"
)

func cmdChecksum(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("checksum", pflag.ContinueOnError)
	fs.SetOutput(errOut)

	var resume string
	fs.StringVar(&resume, "resume", "", "Continue from a previous checksum (0x-prefixed hex or decimal)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: ckbfs checksum [--resume <checksum>] <file>")
		return 2
	}
	prev := checksum.Initial
	if resume != "" {
		n, err := strconv.ParseUint(resume, 0, 32)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --resume: %v\n", err)
			return 2
		}
		prev = uint32(n)
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "0x%08x\n", checksum.Resume(prev, b))
	return 0
}

func cmdBackends(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("backends", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	for _, b := range ledgerregistry.List(ledgerregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(out, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
	}
	return 0
}
