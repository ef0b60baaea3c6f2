package grpcledger

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/ckbfs/ledger"
	"xdao.co/ckbfs/ledger/localfs"
	"xdao.co/ckbfs/ledger/testkit"
)

func newBufconnClient(t *testing.T, backend ledger.Ledger) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterLedgerServer(srv, &Server{Ledger: backend})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	client := NewClient(cc)
	client.Timeout = 2 * time.Second
	return client
}

func TestGRPCLedger_Conformance(t *testing.T) {
	testkit.RunLedgerConformance(t, func(t *testing.T) ledger.Ledger {
		return newBufconnClient(t, ledger.NewMemory())
	})
}

func TestGRPCLedger_LocalFS_RoundTrip(t *testing.T) {
	backend, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := newBufconnClient(t, backend)
	ctx := context.Background()

	tx := testkit.SampleTransaction(42)
	hash, err := client.Commit(ctx, tx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !client.Has(ctx, hash) {
		t.Fatalf("Has: expected true")
	}
	if !backend.Has(ctx, hash) {
		t.Fatalf("transaction did not reach the backend")
	}
	got, err := client.FetchTransaction(ctx, hash)
	if err != nil {
		t.Fatalf("FetchTransaction: %v", err)
	}
	if !ledger.Equal(got, tx) {
		t.Fatalf("transaction mismatch")
	}
}

func TestGRPCLedger_NotFoundMapsToSentinel(t *testing.T) {
	client := newBufconnClient(t, ledger.NewMemory())
	_, err := client.FetchTransaction(context.Background(), ledger.TxHash{0x01})
	if !ledger.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
