package model

import (
	"context"
	"errors"
	"fmt"

	"xdao.co/ckbfs/ckbfs"
	"xdao.co/ckbfs/ledger"
)

type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrMalformedWitness ErrorCode = "MALFORMED_WITNESS"
	ErrCodec            ErrorCode = "CODEC"
	ErrChecksumMismatch ErrorCode = "CHECKSUM_MISMATCH"
	ErrNotFound         ErrorCode = "NOT_FOUND"
	ErrChainBroken      ErrorCode = "CHAIN_BROKEN"
	ErrCanceled         ErrorCode = "CANCELED"
	ErrInternal         ErrorCode = "INTERNAL"
)

// CodedError is a stable error with a machine-readable code and a human message.
type CodedError struct {
	Code    ErrorCode `json:"code"`
	RuleID  string    `json:"ruleId,omitempty"`
	Message string    `json:"message"`
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.RuleID != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.RuleID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

var kindCodes = map[ckbfs.Kind]ErrorCode{
	ckbfs.KindInvalidArgument:  ErrInvalidRequest,
	ckbfs.KindMalformedWitness: ErrMalformedWitness,
	ckbfs.KindCodec:            ErrCodec,
	ckbfs.KindChecksumMismatch: ErrChecksumMismatch,
	ckbfs.KindNotFound:         ErrNotFound,
	ckbfs.KindChainBroken:      ErrChainBroken,
	ckbfs.KindInternal:         ErrInternal,
}

// FromError maps any error returned by this module onto a CodedError.
// It returns nil for a nil error.
func FromError(err error) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce
	}
	var e *ckbfs.Error
	if errors.As(err, &e) {
		code, ok := kindCodes[e.Kind]
		if !ok {
			code = ErrInternal
		}
		return &CodedError{Code: code, RuleID: e.RuleID, Message: err.Error()}
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrCanceled, err.Error())
	case ledger.IsNotFound(err):
		return NewError(ErrNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidHash):
		return NewError(ErrInvalidRequest, err.Error())
	}
	return NewError(ErrInternal, err.Error())
}
