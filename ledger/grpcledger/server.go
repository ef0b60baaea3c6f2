package grpcledger

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ckbfs/ledger"
)

// Server exposes a ledger.Ledger over the Ledger gRPC service.
type Server struct {
	UnimplementedLedgerServer
	Ledger ledger.Ledger
	Logger *logrus.Logger
}

func (s *Server) Fetch(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	hash, err := ledger.ParseTxHash(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, ledger.ErrInvalidHash.Error())
	}
	tx, err := s.Ledger.FetchTransaction(ctx, hash)
	if err != nil {
		return nil, s.mapErr(err)
	}
	b, err := ledger.Marshal(tx)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode transaction failed")
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Commit(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	tx, err := ledger.Unmarshal(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	// Enforce the hash contract on the server side too.
	expected, err := ledger.ComputeHash(tx)
	if err != nil {
		return nil, status.Error(codes.Internal, "hash computation failed")
	}
	hash, err := s.Ledger.Commit(ctx, tx)
	if err != nil {
		return nil, s.mapErr(err)
	}
	if hash != expected {
		return nil, status.Error(codes.DataLoss, ledger.ErrHashMismatch.Error())
	}
	if s.Logger != nil {
		s.Logger.WithField("tx", hash.String()).Info("transaction committed")
	}
	return wrapperspb.String(hash.String()), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Ledger == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing ledger")
	}
	hash, err := ledger.ParseTxHash(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, ledger.ErrInvalidHash.Error())
	}
	return wrapperspb.Bool(s.Ledger.Has(ctx, hash)), nil
}

func (s *Server) mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidHash):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ledger.ErrHashMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, ledger.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ledger.ErrReadOnly):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		if s.Logger != nil {
			s.Logger.WithError(err).Error("ledger backend failure")
		}
		return status.Error(codes.Internal, err.Error())
	}
}
