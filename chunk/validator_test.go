package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_WriteMatchingHash(t *testing.T) {
	data := []byte("payload")
	addr, err := NewAddress(data, SHA256)
	require.NoError(t, err)

	res := NewValidator().ValidateWrite(data, addr)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidator_WriteHashMismatch(t *testing.T) {
	addr, err := NewAddress([]byte("payload"), SHA256)
	require.NoError(t, err)

	res := NewValidator().ValidateWrite([]byte("tampered"), addr)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, IssueHashMismatch, res.Errors[0].Code)
}

func TestValidator_ReadCorruptionIsDistinct(t *testing.T) {
	addr, err := NewAddress([]byte("payload"), SHA256)
	require.NoError(t, err)

	res := NewValidator().ValidateRead([]byte("rotted"), addr)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, IssueCorruptedData, res.Errors[0].Code)
}

func TestValidator_LengthMismatchIsWarning(t *testing.T) {
	// A short hex digest is well-formed but the wrong length for
	// sha256: a warning, never an error.
	addr := Address{ID: "abcd12", Meta: &Metadata{HashAlgorithm: "sha256"}}

	res := NewValidator(WithHashVerification(false)).ValidateWrite([]byte("x"), addr)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, IssueLengthMismatch, res.Warnings[0].Code)
}

func TestValidator_AddressWellFormedness(t *testing.T) {
	v := NewValidator(WithHashVerification(false))

	tests := []struct {
		name string
		id   string
		code IssueCode
	}{
		{"empty digest", "", IssueEmptyID},
		{"non-hex digest", "not-hex!", IssueNotHex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidateWrite([]byte("x"), AddressOf(tt.id))
			assert.False(t, res.Valid)
			require.NotEmpty(t, res.Errors)
			assert.Equal(t, tt.code, res.Errors[0].Code)
		})
	}
}

func TestValidator_SizeLimit(t *testing.T) {
	data := []byte("0123456789")
	addr, err := NewAddress(data, SHA256)
	require.NoError(t, err)

	res := NewValidator(WithMaxSize(4)).ValidateWrite(data, addr)
	assert.False(t, res.Valid)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, IssueSizeExceeded, res.Errors[0].Code)

	res = NewValidator(WithMaxSize(100)).ValidateWrite(data, addr)
	assert.True(t, res.Valid)
}

func TestValidator_DisabledHashVerification(t *testing.T) {
	addr, err := NewAddress([]byte("payload"), SHA256)
	require.NoError(t, err)

	res := NewValidator(WithHashVerification(false)).ValidateWrite([]byte("different"), addr)
	assert.True(t, res.Valid)
}
