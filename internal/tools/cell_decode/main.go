// Command cell_decode prints a CKBFS cell data blob as JSON. The blob is read
// as hex (with or without 0x) from the argument, or from stdin when the
// argument is "-".
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/model"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: cell_decode <hex|->")
		return 2
	}
	s := args[0]
	if s == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			fmt.Fprintf(errOut, "read: %v\n", err)
			return 1
		}
		s = string(b)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		fmt.Fprintf(errOut, "hex: %v\n", err)
		return 2
	}
	rec, err := ckbfs.UnpackAny(data, nil)
	if err != nil {
		fmt.Fprintf(errOut, "decode: %v\n", model.FromError(err))
		return 1
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model.FromRecord(nil, rec)); err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	return 0
}
