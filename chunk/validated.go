package chunk

import (
	"context"
	"fmt"
)

// Validated wraps a Store with pre-write and post-read integrity checks.
type Validated struct {
	Store
	validator *Validator
}

var _ Store = (*Validated)(nil)

// NewValidated wraps store so every Write is checked before persisting
// and every Read is checked after loading. A nil validator gets the
// default configuration.
func NewValidated(store Store, validator *Validator) *Validated {
	if validator == nil {
		validator = NewValidator()
	}
	return &Validated{Store: store, validator: validator}
}

// Write implements Store, rejecting data that fails validation.
func (s *Validated) Write(ctx context.Context, data []byte, addr Address) (Address, error) {
	if res := s.validator.ValidateWrite(data, addr); !res.Valid {
		return Address{}, s.resultError(res, data, addr, false)
	}
	return s.Store.Write(ctx, data, addr)
}

// Read implements Store, flagging corruption when stored bytes no
// longer hash to their address.
func (s *Validated) Read(ctx context.Context, addr Address) ([]byte, error) {
	data, err := s.Store.Read(ctx, addr)
	if err != nil || data == nil {
		return data, err
	}
	if res := s.validator.ValidateRead(data, addr); !res.Valid {
		return nil, s.resultError(res, data, addr, true)
	}
	return data, nil
}

func (s *Validated) resultError(res Result, data []byte, addr Address, onRead bool) error {
	for _, issue := range res.Errors {
		if issue.Code == IssueHashMismatch || issue.Code == IssueCorruptedData {
			actual, _ := s.validator.declaredAlgorithm(addr).Sum(data)
			return &HashMismatchError{Expected: addr.ID, Actual: actual, OnRead: onRead}
		}
	}
	issue := res.Errors[0]
	return fmt.Errorf("chunk %s: %s: %s: %w", addr.ID, issue.Code, issue.Message, sentinelFor(issue.Code))
}

// sentinelFor maps a validation issue to the sentinel callers match on.
func sentinelFor(code IssueCode) error {
	switch code {
	case IssueSizeExceeded:
		return ErrSizeExceeded
	case IssueBadMetadata:
		return ErrUnsupportedAlgorithm
	default:
		return ErrInvalidAddress
	}
}
