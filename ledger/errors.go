package ledger

import "errors"

var (
	ErrNotFound     = errors.New("ledger: transaction not found")
	ErrInvalidHash  = errors.New("ledger: invalid transaction hash")
	ErrHashMismatch = errors.New("ledger: transaction hash mismatch")
	ErrImmutable    = errors.New("ledger: immutable transaction mismatch")
	ErrReadOnly     = errors.New("ledger: backend is read-only")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
