package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"--list-backends"}, &out, &errOut); code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut.String())
	}
	for _, name := range []string{"localfs", "badger", "ckb"} {
		if !strings.Contains(out.String(), name+"\t") {
			t.Fatalf("missing backend %q in:\n%s", name, out.String())
		}
	}
}

func TestRun_BackendErrors(t *testing.T) {
	cases := [][]string{
		{"--backend", "nope"},
		{"--backend", "localfs"},
		{"--log-level", "loud"},
		{"--unknown-flag"},
	}
	for _, args := range cases {
		var out, errOut bytes.Buffer
		if code := run(context.Background(), args, &out, &errOut); code != 2 {
			t.Fatalf("run(%v) code=%d want 2 (stderr=%s)", args, code, errOut.String())
		}
	}
}
