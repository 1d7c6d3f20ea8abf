package chunk

import "fmt"

// IssueCode classifies a validation finding.
type IssueCode uint8

// Validation issue codes.
const (
	IssueEmptyID IssueCode = iota
	IssueNotHex
	IssueLengthMismatch
	IssueHashMismatch
	IssueCorruptedData
	IssueSizeExceeded
	IssueBadMetadata
)

// String returns the issue code name.
func (c IssueCode) String() string {
	switch c {
	case IssueEmptyID:
		return "empty_id"
	case IssueNotHex:
		return "not_hex"
	case IssueLengthMismatch:
		return "length_mismatch"
	case IssueHashMismatch:
		return "hash_mismatch"
	case IssueCorruptedData:
		return "corrupted_data"
	case IssueSizeExceeded:
		return "size_exceeded"
	case IssueBadMetadata:
		return "bad_metadata"
	default:
		return "unknown"
	}
}

// Issue is one validation finding.
type Issue struct {
	Code    IssueCode
	Message string
}

// Result reports the outcome of a validation pass. Warnings never
// affect Valid.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

func (r *Result) addError(code IssueCode, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	r.Valid = false
}

func (r *Result) addWarning(code IssueCode, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Validator checks chunks before writes and after reads.
type Validator struct {
	maxSize      int64
	verifyHashes bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMaxSize rejects chunks larger than n bytes. Zero disables the check.
func WithMaxSize(n int64) ValidatorOption {
	return func(v *Validator) {
		v.maxSize = n
	}
}

// WithHashVerification toggles digest recomputation. Enabled by default.
func WithHashVerification(on bool) ValidatorOption {
	return func(v *Validator) {
		v.verifyHashes = on
	}
}

// NewValidator returns a Validator with hash verification enabled.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{verifyHashes: true}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateWrite checks data and addr before a store write.
//
// A digest whose length does not match the declared algorithm is a
// warning, not an error, since algorithms vary. A recomputed digest
// that disagrees with the address is a hard error.
func (v *Validator) ValidateWrite(data []byte, addr Address) Result {
	res := Result{Valid: true}
	v.checkAddress(addr, &res)
	v.checkSize(int64(len(data)), &res)
	if v.verifyHashes && len(res.Errors) == 0 {
		v.checkHash(data, addr, IssueHashMismatch, &res)
	}
	return res
}

// ValidateRead checks data read back from a store against its address.
// A hash failure here is flagged as corrupted data: the store, not the
// caller, is at fault.
func (v *Validator) ValidateRead(data []byte, addr Address) Result {
	res := Result{Valid: true}
	v.checkAddress(addr, &res)
	if v.verifyHashes && len(res.Errors) == 0 {
		v.checkHash(data, addr, IssueCorruptedData, &res)
	}
	return res
}

func (v *Validator) checkAddress(addr Address, res *Result) {
	if addr.ID == "" {
		res.addError(IssueEmptyID, "address digest is empty")
		return
	}
	if !isHex(addr.ID) {
		res.addError(IssueNotHex, "address %q is not hex", addr.ID)
		return
	}
	algo := v.declaredAlgorithm(addr)
	if want := algo.HexLength(); want > 0 && len(addr.ID) != want {
		res.addWarning(IssueLengthMismatch, "digest length %d does not match %s (want %d)", len(addr.ID), algo, want)
	}
}

func (v *Validator) checkSize(n int64, res *Result) {
	if v.maxSize > 0 && n > v.maxSize {
		res.addError(IssueSizeExceeded, "chunk size %d exceeds limit %d", n, v.maxSize)
	}
}

func (v *Validator) checkHash(data []byte, addr Address, code IssueCode, res *Result) {
	algo := v.declaredAlgorithm(addr)
	actual, err := algo.Sum(data)
	if err != nil {
		res.addError(IssueBadMetadata, "digest %s: %v", addr.ID, err)
		return
	}
	if actual != addr.ID {
		res.addError(code, "expected %s, got %s", addr.ID, actual)
	}
}

func (v *Validator) declaredAlgorithm(addr Address) Algorithm {
	if addr.Meta != nil && addr.Meta.HashAlgorithm != "" {
		if algo, err := ParseAlgorithm(addr.Meta.HashAlgorithm); err == nil {
			return algo
		}
	}
	return DefaultAlgorithm
}
