package main

import (
	"fmt"
	"io"
	"os"

	_ "xdao.co/ckbfs/ledger/badgerdb"
	_ "xdao.co/ckbfs/ledger/ckbrpc"
	_ "xdao.co/ckbfs/ledger/grpcledger"
	_ "xdao.co/ckbfs/ledger/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "publish":
		return cmdPublish(args[1:], out, errOut)
	case "append":
		return cmdAppend(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "info":
		return cmdInfo(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "checksum":
		return cmdChecksum(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "backends":
		return cmdBackends(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "ckbfs: store and reconstruct files in CKB transaction witnesses")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ckbfs publish [ledger flags] [signer flags] [--content-type <t>] [--filename <n>] <file>")
	fmt.Fprintln(w, "  ckbfs append [ledger flags] [signer flags] --ref <ref> <file>")
	fmt.Fprintln(w, "  ckbfs get [ledger flags] [--out <file>] [--report] <ref>")
	fmt.Fprintln(w, "  ckbfs info [ledger flags] [--resolve] <ref>")
	fmt.Fprintln(w, "  ckbfs bundle export [ledger flags] [--out <file>] <ref>")
	fmt.Fprintln(w, "  ckbfs bundle import [ledger flags] [--ignore-unknown] <file>")
	fmt.Fprintln(w, "  ckbfs checksum [--resume <checksum>] <file>")
	fmt.Fprintln(w, "  ckbfs key init --name <name> [--alg ed25519|dilithium3] [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  ckbfs key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  ckbfs key list")
	fmt.Fprintln(w, "  ckbfs key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  ckbfs backends")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ledger flags:")
	fmt.Fprintln(w, "  --backend <name>          ledger backend (see 'ckbfs backends'; default localfs)")
	fmt.Fprintln(w, "  --ledger-config <file>    multi-backend YAML config (overrides --backend)")
	fmt.Fprintln(w, "  --config <file>           chunk size, version, policy, max hops, fee rate")
	fmt.Fprintln(w, "  --version, --chunk-size, --mode, --max-hops override the config file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - refs are ckbfs://0x<tx hash>:<output index>, 0x<hash>:<index> or a bare hash (index 0)")
	fmt.Fprintln(w, "  - publish/append print the new ref to stdout")
	fmt.Fprintln(w, "  - without signer flags files are owned by an always-success lock")
	fmt.Fprintln(w, "  - keys are stored under ~/.xdao/ckbfs/keys/<name> (0600 private key files)")
}
