package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() []byte {
	// Repetitive enough that every codec actually shrinks it.
	return bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 64)
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := testPayload()

	for _, name := range []string{NameNone, NameGzip, NameZstd, NameLZ4} {
		t.Run(name, func(t *testing.T) {
			codec, err := ForName(name)
			require.NoError(t, err)
			assert.Equal(t, name, codec.Name())

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)

			if name != NameNone {
				assert.Less(t, len(compressed), len(payload))
			}
		})
	}
}

func TestForName(t *testing.T) {
	codec, err := ForName("")
	require.NoError(t, err)
	assert.Equal(t, NameNone, codec.Name())

	_, err = ForName("brotli")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestDetect(t *testing.T) {
	payload := testPayload()

	for _, name := range []string{NameGzip, NameZstd, NameLZ4} {
		t.Run(name, func(t *testing.T) {
			codec, err := ForName(name)
			require.NoError(t, err)
			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			assert.Equal(t, name, Detect(compressed).Name())
		})
	}

	t.Run("unknown falls back to none", func(t *testing.T) {
		assert.Equal(t, NameNone, Detect([]byte("plain text")).Name())
		assert.Equal(t, NameNone, Detect(nil).Name())
	})
}

func TestCodec_EmptyInput(t *testing.T) {
	for _, name := range []string{NameNone, NameGzip, NameZstd, NameLZ4} {
		t.Run(name, func(t *testing.T) {
			codec, err := ForName(name)
			require.NoError(t, err)

			compressed, err := codec.Compress([]byte{})
			require.NoError(t, err)
			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			assert.Empty(t, decompressed)
		})
	}
}
