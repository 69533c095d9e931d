package apkzip

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deflateRaw compresses data with the standard library's raw DEFLATE
// writer, purely to build fixtures for the hand-written decoder under
// test; inflateRaw itself never imports compress/flate.
func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestInflateRawStoredBlock(t *testing.T) {
	data := []byte("hello, stored block")
	// NoCompression makes flate emit stored (BTYPE=00) blocks.
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.NoCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	got, err := inflateRaw(buf.Bytes(), len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestInflateRawFixedHuffmanBlock(t *testing.T) {
	// Short, low-entropy input is encoded by flate as a fixed Huffman block.
	data := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	compressed := deflateRaw(t, data)
	got, err := inflateRaw(compressed, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestInflateRawDynamicHuffmanBlock(t *testing.T) {
	// Larger, varied input pushes flate toward a dynamic Huffman block.
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 2000)
	compressed := deflateRaw(t, data)
	got, err := inflateRaw(compressed, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestInflateRawWithBackReferences(t *testing.T) {
	data := bytes.Repeat([]byte("abcabcabcabcabcabcabcabcabcabc"), 50)
	compressed := deflateRaw(t, data)
	got, err := inflateRaw(compressed, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestInflateRawEmptyInput(t *testing.T) {
	compressed := deflateRaw(t, nil)
	got, err := inflateRaw(compressed, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInflateRawRejectsSizeMismatch(t *testing.T) {
	data := []byte("some data that decompresses to a fixed length")
	compressed := deflateRaw(t, data)
	_, err := inflateRaw(compressed, len(data)+10)
	require.Error(t, err)
}

func TestInflateRawRejectsTruncatedStream(t *testing.T) {
	data := bytes.Repeat([]byte("truncate me please "), 100)
	compressed := deflateRaw(t, data)
	_, err := inflateRaw(compressed[:len(compressed)/2], len(data))
	require.Error(t, err)
}
