package chunk

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidated_WriteRejectsSizeLimit(t *testing.T) {
	ctx := context.Background()
	store := NewValidated(newMemStore(), NewValidator(WithMaxSize(8)))

	data := bytes.Repeat([]byte("x"), 16)
	addr, err := NewAddress(data, SHA256)
	require.NoError(t, err)

	_, err = store.Write(ctx, data, addr)
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.NotErrorIs(t, err, ErrInvalidAddress)
}

func TestValidated_WriteRejectsBadAddress(t *testing.T) {
	ctx := context.Background()
	store := NewValidated(newMemStore(), NewValidator())

	_, err := store.Write(ctx, []byte("x"), AddressOf("not hex!"))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestValidated_ReadFlagsCorruption(t *testing.T) {
	ctx := context.Background()
	backing := newMemStore()
	store := NewValidated(backing, NewValidator())

	data := []byte("intact")
	addr, err := NewAddress(data, SHA256)
	require.NoError(t, err)
	_, err = store.Write(ctx, data, addr)
	require.NoError(t, err)

	// Corrupt the stored bytes behind the digest.
	require.NoError(t, backing.Update(ctx, []byte("rotten"), addr))

	_, err = store.Read(ctx, addr)
	assert.ErrorIs(t, err, ErrCorruptedData)
}
