// Package bundle moves committed transactions between ledgers as a
// deterministic TAR archive.
//
// Layout:
//
//	txs/<64 hex hash>   canonical transaction encoding (ledger.Marshal)
//	index.json          optional, non-authoritative
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"xdao.co/ckbfs/ledger"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const txPrefix = "txs/"

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional metadata mapping names (usually file references) to
	// transaction hashes.
	Labels map[string]ledger.TxHash
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a TAR bundle holding the given transactions.
//
// The bundle bytes are deterministic: entry order is lexicographic and TAR
// headers are normalized. Every exported transaction is re-hashed.
func Export(ctx context.Context, w io.Writer, f ledger.Fetcher, hashes []ledger.TxHash, opts ExportOptions) (err error) {
	if f == nil {
		return errors.New("bundle: nil fetcher")
	}

	uniq := make(map[ledger.TxHash]struct{}, len(hashes))
	for _, h := range hashes {
		if h.IsZero() {
			return ledger.ErrInvalidHash
		}
		uniq[h] = struct{}{}
	}
	sorted := make([]ledger.TxHash, 0, len(uniq))
	for h := range uniq {
		sorted = append(sorted, h)
	}
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })

	tw := tar.NewWriter(w)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	entries := make([]indexTx, 0, len(sorted))
	for _, h := range sorted {
		tx, err := f.FetchTransaction(ctx, h)
		if err != nil {
			return err
		}
		got, err := ledger.ComputeHash(tx)
		if err != nil {
			return err
		}
		if got != h {
			return ledger.ErrHashMismatch
		}
		b, err := ledger.Marshal(tx)
		if err != nil {
			return err
		}
		if err := writeFile(tw, txPrefix+hex.EncodeToString(h[:]), b); err != nil {
			return err
		}
		entries = append(entries, indexTx{Hash: h.String(), Size: len(b)})
	}

	if !opts.IncludeIndex {
		return nil
	}
	idx := indexJSON{
		Version:  FormatVersion,
		Encoding: "cbor",
		Hash:     "blake2b-256",
		Txs:      entries,
	}
	if len(opts.Labels) > 0 {
		names := make([]string, 0, len(opts.Labels))
		for k := range opts.Labels {
			if k == "" {
				return errors.New("bundle: empty label key")
			}
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			idx.Labels = append(idx.Labels, indexLabel{Name: k, TxHash: opts.Labels[k].String()})
		}
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeFile(tw, "index.json", append(b, '\n'))
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and commits every transaction to c, returning
// the imported hashes in bundle order.
func Import(ctx context.Context, r io.Reader, c ledger.Committer) ([]ledger.TxHash, error) {
	return ImportWithOptions(ctx, r, c, ImportOptions{})
}

// ImportWithOptions is Import with options. Each transaction must hash to the
// name of its entry.
func ImportWithOptions(ctx context.Context, r io.Reader, c ledger.Committer, opts ImportOptions) ([]ledger.TxHash, error) {
	if c == nil {
		return nil, errors.New("bundle: nil committer")
	}

	tr := tar.NewReader(r)
	seen := map[ledger.TxHash]struct{}{}
	var out []ledger.TxHash

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		h, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return out, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return out, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		if !strings.HasPrefix(name, txPrefix) {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return out, fmt.Errorf("bundle: unknown entry: %s", name)
		}

		want, err := ledger.ParseTxHash(strings.TrimPrefix(name, txPrefix))
		if err != nil {
			return out, err
		}
		if _, ok := seen[want]; ok {
			return out, fmt.Errorf("bundle: duplicate transaction entry: %s", want)
		}
		seen[want] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return out, err
		}
		tx, err := ledger.Unmarshal(payload)
		if err != nil {
			return out, fmt.Errorf("bundle: %s: %w", name, err)
		}
		got, err := ledger.ComputeHash(tx)
		if err != nil {
			return out, err
		}
		if got != want {
			return out, ledger.ErrHashMismatch
		}
		committed, err := c.Commit(ctx, tx)
		if err != nil {
			return out, err
		}
		if committed != want {
			return out, ledger.ErrHashMismatch
		}
		out = append(out, want)
	}
}

type indexJSON struct {
	Version  int          `json:"version"`
	Encoding string       `json:"encoding"`
	Hash     string       `json:"hash"`
	Txs      []indexTx    `json:"txs"`
	Labels   []indexLabel `json:"labels,omitempty"`
}

type indexTx struct {
	Hash string `json:"hash"`
	Size int    `json:"size"`
}

type indexLabel struct {
	Name   string `json:"name"`
	TxHash string `json:"txHash"`
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
