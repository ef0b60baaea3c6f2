package grpcledger

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ckbfs/ledger"
)

// Client implements ledger.Ledger over a Ledger gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ ledger.Ledger = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewLedgerClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Commit(ctx context.Context, tx *ledger.Transaction) (ledger.TxHash, error) {
	expected, err := ledger.ComputeHash(tx)
	if err != nil {
		return ledger.ZeroHash, err
	}
	b, err := ledger.Marshal(tx)
	if err != nil {
		return ledger.ZeroHash, err
	}

	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Commit(ctx, wrapperspb.Bytes(b))
	if err != nil {
		return ledger.ZeroHash, mapRPC(err)
	}
	got, err := ledger.ParseTxHash(reply.GetValue())
	if err != nil {
		return ledger.ZeroHash, err
	}
	if got != expected {
		return ledger.ZeroHash, ledger.ErrHashMismatch
	}
	return got, nil
}

func (c *Client) FetchTransaction(ctx context.Context, hash ledger.TxHash) (*ledger.Transaction, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Fetch(ctx, wrapperspb.String(hash.String()))
	if err != nil {
		return nil, mapRPC(err)
	}
	tx, err := ledger.Unmarshal(reply.GetValue())
	if err != nil {
		return nil, err
	}
	got, err := ledger.ComputeHash(tx)
	if err != nil {
		return nil, err
	}
	if got != hash {
		return nil, ledger.ErrHashMismatch
	}
	return tx, nil
}

func (c *Client) Has(ctx context.Context, hash ledger.TxHash) bool {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(hash.String()))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
