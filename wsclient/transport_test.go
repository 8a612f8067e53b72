package wsclient

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointOptionsURL(t *testing.T) {
	t.Parallel()
	o := EndpointOptions{Host: "example.com", Port: 443, Path: "/ws", TLS: true}
	assert.Equal(t, "wss://example.com:443/ws", o.url())

	o.TLS = false
	assert.Equal(t, "ws://example.com:443/ws", o.url())
}

func TestDecompressBinaryGzip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte("hello gzip"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	out, err := decompressBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "hello gzip", string(out))
}

func TestDecompressBinaryPassthrough(t *testing.T) {
	t.Parallel()
	raw := []byte("just some raw binary data that is not compressed")
	out, err := decompressBinary(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
