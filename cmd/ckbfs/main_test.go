package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/ckbfs/model"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestRun_UsageErrors(t *testing.T) {
	if _, _, code := runCLI(t); code != 2 {
		t.Fatalf("no args: code=%d want 2", code)
	}
	if _, errOut, code := runCLI(t, "frobnicate"); code != 2 || !strings.Contains(errOut, "unknown command") {
		t.Fatalf("unknown command: code=%d stderr=%q", code, errOut)
	}
	if out, _, code := runCLI(t, "help"); code != 0 || !strings.Contains(out, "ckbfs publish") {
		t.Fatalf("help: code=%d out=%q", code, out)
	}
}

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	whole := writeFile(t, dir, "whole", "Wikipedia")
	head := writeFile(t, dir, "head", "Wiki")
	tail := writeFile(t, dir, "tail", "pedia")

	out, errOut, code := runCLI(t, "checksum", whole)
	if code != 0 {
		t.Fatalf("checksum failed: %s", errOut)
	}
	if strings.TrimSpace(out) != "0x11e60398" {
		t.Fatalf("checksum = %q want 0x11e60398", out)
	}

	prev, _, _ := runCLI(t, "checksum", head)
	resumed, errOut, code := runCLI(t, "checksum", "--resume", strings.TrimSpace(prev), tail)
	if code != 0 {
		t.Fatalf("checksum --resume failed: %s", errOut)
	}
	if resumed != out {
		t.Fatalf("resumed checksum %q != whole %q", resumed, out)
	}

	if _, _, code := runCLI(t, "checksum", "--resume", "nope", tail); code != 2 {
		t.Fatalf("bad --resume: code=%d want 2", code)
	}
}

func TestBackends(t *testing.T) {
	out, _, code := runCLI(t, "backends")
	if code != 0 {
		t.Fatalf("backends: code=%d", code)
	}
	for _, name := range []string{"localfs", "badger", "grpc", "ckb"} {
		if !strings.Contains(out, name+"\t") {
			t.Fatalf("backends output missing %q:\n%s", name, out)
		}
	}
}

func TestKeyCommands(t *testing.T) {
	keyDir = t.TempDir()
	t.Cleanup(func() { keyDir = "" })

	seed := strings.Repeat("11", 32)
	out, errOut, code := runCLI(t, "key", "init", "--name", "alice", "--seed-hex", seed)
	if code != 0 {
		t.Fatalf("key init failed: %s", errOut)
	}
	if !strings.HasPrefix(out, "Created owner key: ed25519:") {
		t.Fatalf("unexpected key init output: %q", out)
	}
	if _, _, code := runCLI(t, "key", "init", "--name", "alice", "--seed-hex", seed); code != 1 {
		t.Fatalf("re-init without --force: code=%d want 1", code)
	}
	if _, errOut, code := runCLI(t, "key", "derive", "--from", "alice", "--role", "mirror"); code != 0 {
		t.Fatalf("key derive failed: %s", errOut)
	}
	if _, errOut, code := runCLI(t, "key", "init", "--name", "bob", "--alg", "dilithium3"); code != 0 {
		t.Fatalf("key init dilithium3 failed: %s", errOut)
	}

	out, _, code = runCLI(t, "key", "list")
	if code != 0 {
		t.Fatalf("key list: code=%d", code)
	}
	want := "alice\ted25519\n  - mirror\nbob\tdilithium3\n"
	if out != want {
		t.Fatalf("key list = %q want %q", out, want)
	}

	owner, _, _ := runCLI(t, "key", "export", "--name", "alice")
	role, _, _ := runCLI(t, "key", "export", "--name", "alice", "--role", "mirror")
	if !strings.HasPrefix(owner, "ed25519:") || owner == role {
		t.Fatalf("export: owner=%q role=%q", owner, role)
	}
	if _, _, code := runCLI(t, "key", "init", "--name", "x", "--alg", "rsa"); code != 2 {
		t.Fatalf("bad --alg: code=%d want 2", code)
	}
}

func TestPublishAppendGetInfo(t *testing.T) {
	for _, version := range []string{"v1", "v2", "v3"} {
		t.Run(version, func(t *testing.T) {
			dir := t.TempDir()
			ledgerDir := filepath.Join(dir, "ledger")
			common := []string{"--localfs-dir", ledgerDir, "--version", version, "--chunk-size", "16", "--mode", "strict"}
			signer := []string{"--seed-hex", strings.Repeat("22", 32)}

			first, second := "hello ", "world"
			if version != "v1" {
				first, second = "a first part that spans chunks, ", "then a second part"
			}
			src := writeFile(t, dir, "note.txt", first)
			more := writeFile(t, dir, "more", second)

			out, errOut, code := runCLI(t, append(append([]string{"publish"}, common...), append(signer, src)...)...)
			if code != 0 {
				t.Fatalf("publish failed: %s", errOut)
			}
			ref := strings.TrimSpace(out)
			if !strings.HasPrefix(ref, "ckbfs://0x") {
				t.Fatalf("publish printed %q", ref)
			}

			out, errOut, code = runCLI(t, append(append([]string{"append"}, common...), append(signer, "--ref", ref, more)...)...)
			if code != 0 {
				t.Fatalf("append failed: %s", errOut)
			}
			ref2 := strings.TrimSpace(out)

			dest := filepath.Join(dir, "out.txt")
			out, errOut, code = runCLI(t, append(append([]string{"get"}, common...), "--out", dest, ref2)...)
			if code != 0 {
				t.Fatalf("get failed: %s", errOut)
			}
			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("read output: %v", err)
			}
			if string(got) != first+second {
				t.Fatalf("content = %q want %q", got, first+second)
			}
			if !strings.HasPrefix(strings.TrimSpace(out), "baf") {
				t.Fatalf("get should print the content CID, got %q", out)
			}

			out, errOut, code = runCLI(t, append(append([]string{"info"}, common...), ref2)...)
			if code != 0 {
				t.Fatalf("info failed: %s", errOut)
			}
			var view model.RecordView
			if err := json.Unmarshal([]byte(out), &view); err != nil {
				t.Fatalf("info output is not JSON: %v\n%s", err, out)
			}
			if view.Version != version || view.Filename != "note.txt" || view.ContentType != "text/plain; charset=utf-8" {
				t.Fatalf("unexpected record view: %+v", view)
			}
			if version != "v3" && len(view.BackLinks) != 1 {
				t.Fatalf("expected one backlink, got %+v", view.BackLinks)
			}

			out, errOut, code = runCLI(t, append(append([]string{"info", "--resolve"}, common...), ref2)...)
			if code != 0 {
				t.Fatalf("info --resolve failed: %s", errOut)
			}
			var rep model.ReconstructionReport
			if err := json.Unmarshal([]byte(out), &rep); err != nil {
				t.Fatalf("info --resolve output is not JSON: %v", err)
			}
			if !rep.Verified || rep.Size != len(first+second) || len(rep.Hops) != 2 {
				t.Fatalf("unexpected report: %+v", rep)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	dir := t.TempDir()
	ref := "0x" + strings.Repeat("ab", 32)
	_, errOut, code := runCLI(t, "get", "--localfs-dir", dir, ref)
	if code != 1 || !strings.Contains(errOut, string(model.ErrNotFound)) {
		t.Fatalf("get missing: code=%d stderr=%q", code, errOut)
	}
}

func TestPublish_V1RejectsLargeFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "big", strings.Repeat("x", 64))
	_, errOut, code := runCLI(t, "publish", "--localfs-dir", dir, "--version", "v1", "--chunk-size", "16", src)
	if code != 2 || !strings.Contains(errOut, "CKBFS-PUB-001") {
		t.Fatalf("v1 multi-chunk publish: code=%d stderr=%q", code, errOut)
	}
}

func TestBundleExportImport(t *testing.T) {
	dir := t.TempDir()
	srcLedger := filepath.Join(dir, "src")
	dstLedger := filepath.Join(dir, "dst")
	src := writeFile(t, dir, "doc.md", "# moving between ledgers")
	more := writeFile(t, dir, "more", "\nsecond version")

	out, errOut, code := runCLI(t, "publish", "--localfs-dir", srcLedger, "--chunk-size", "8", src)
	if code != 0 {
		t.Fatalf("publish failed: %s", errOut)
	}
	out, errOut, code = runCLI(t, "append", "--localfs-dir", srcLedger, "--ref", strings.TrimSpace(out), more)
	if code != 0 {
		t.Fatalf("append failed: %s", errOut)
	}
	ref := strings.TrimSpace(out)

	bundlePath := filepath.Join(dir, "file.tar")
	if _, errOut, code := runCLI(t, "bundle", "export", "--localfs-dir", srcLedger, "--out", bundlePath, ref); code != 0 {
		t.Fatalf("bundle export failed: %s", errOut)
	}
	out, errOut, code = runCLI(t, "bundle", "import", "--localfs-dir", dstLedger, bundlePath)
	if code != 0 {
		t.Fatalf("bundle import failed: %s", errOut)
	}
	if n := len(strings.Fields(out)); n != 2 {
		t.Fatalf("imported %d transactions, want 2:\n%s", n, out)
	}

	out, errOut, code = runCLI(t, "get", "--localfs-dir", dstLedger, ref)
	if code != 0 {
		t.Fatalf("get from imported ledger failed: %s", errOut)
	}
	if out != "# moving between ledgers\nsecond version" {
		t.Fatalf("content = %q", out)
	}
}
