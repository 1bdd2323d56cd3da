package util

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mgerr "minignet/internal/errors"
)

func TestReadToEnd(t *testing.T) {
	payload := strings.Repeat("x", 3*ChunkSize+17)

	got, err := ReadToEnd(strings.NewReader(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestReadToEnd_Limit(t *testing.T) {
	_, err := ReadToEnd(bytes.NewReader(make([]byte, 100)), 99)
	assert.ErrorIs(t, err, mgerr.ErrRequestTooLarge)

	got, err := ReadToEnd(bytes.NewReader(make([]byte, 100)), 100)
	require.NoError(t, err)
	assert.Len(t, got, 100)
}

func TestCountingReader_CountsRejectedInput(t *testing.T) {
	in := &CountingReader{R: bytes.NewReader(make([]byte, 3*ChunkSize+5))}

	_, err := ReadToEnd(in, ChunkSize)
	require.ErrorIs(t, err, mgerr.ErrRequestTooLarge)
	_, err = io.Copy(io.Discard, in)
	require.NoError(t, err)
	assert.Equal(t, int64(3*ChunkSize+5), in.N)
}

func TestReadToEnd_Empty(t *testing.T) {
	got, err := ReadToEnd(strings.NewReader(""), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestHalfCloseExchange checks the one-request-per-connection framing:
// the client half-closes, the server reads to EOF, answers, and the
// client still reads the answer.
func TestHalfCloseExchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		req, err := ReadToEnd(conn, 0)
		if err != nil {
			return
		}
		WriteAndCloseWrite(conn, append([]byte("re:"), req...)) //nolint:errcheck
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = WriteAndCloseWrite(conn, []byte("ping"))
	require.NoError(t, err)

	resp, err := ReadToEnd(conn, 0)
	require.NoError(t, err)
	assert.Equal(t, "re:ping", string(resp))
}

func TestCloseWrite_Unsupported(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	assert.Error(t, CloseWrite(a))
}

func TestIsHarmless(t *testing.T) {
	assert.True(t, IsHarmless(nil))
	assert.True(t, IsHarmless(io.EOF))
	assert.True(t, IsHarmless(net.ErrClosed))
	assert.True(t, IsHarmless(&net.OpError{Op: "read", Err: net.ErrClosed}))
	assert.False(t, IsHarmless(io.ErrUnexpectedEOF))
}

func TestChunkPool_RoundTrip(t *testing.T) {
	buf := GetChunk()
	require.NotNil(t, buf)
	assert.Len(t, *buf, ChunkSize)
	PutChunk(buf)
	PutChunk(nil) // must not panic
}
