package grpcledger

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/ckbfs/ledger"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return ledger.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed hashes.
		return ledger.ErrInvalidHash
	case codes.DataLoss:
		return ledger.ErrHashMismatch
	case codes.AlreadyExists:
		return ledger.ErrImmutable
	case codes.PermissionDenied:
		return ledger.ErrReadOnly
	default:
		return err
	}
}
