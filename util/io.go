package util

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	mgerr "minignet/internal/errors"
)

// ChunkSize is the read granularity for request and response bodies.
// Messages are small, so a few KiB covers almost every frame in one read.
const ChunkSize = 4 * 1024

var chunkPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetChunk borrows a read buffer.  Return it with [PutChunk].
func GetChunk() *[]byte {
	return chunkPool.Get().(*[]byte)
}

// PutChunk returns a buffer obtained from [GetChunk].
func PutChunk(buf *[]byte) {
	if buf == nil {
		return
	}
	chunkPool.Put(buf)
}

// ReadToEnd reads r until EOF, which on a TCP stream means the peer
// half-closed its write side.  A positive limit caps the total size;
// exceeding it fails with [mgerr.ErrRequestTooLarge].
func ReadToEnd(r io.Reader, limit int64) ([]byte, error) {
	chunk := GetChunk()
	defer PutChunk(chunk)

	var out []byte
	for {
		n, err := r.Read(*chunk)
		if n > 0 {
			if limit > 0 && int64(len(out)+n) > limit {
				return nil, fmt.Errorf("%w: more than %d bytes", mgerr.ErrRequestTooLarge, limit)
			}
			out = append(out, (*chunk)[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// CountingReader counts the bytes read through it.  N is not
// synchronised; read it after the last Read returned.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

// halfCloser is implemented by *net.TCPConn and by SSH-forwarded
// connections.
type halfCloser interface {
	CloseWrite() error
}

// CloseWrite shuts down the sending side of conn so the peer reads EOF
// while this side can still read the reply.
func CloseWrite(conn net.Conn) error {
	hc, ok := conn.(halfCloser)
	if !ok {
		return fmt.Errorf("half-close not supported by %T", conn)
	}
	return hc.CloseWrite()
}

// WriteAndCloseWrite writes data in full, then half-closes conn.
func WriteAndCloseWrite(conn net.Conn, data []byte) (int, error) {
	n, err := conn.Write(data)
	if err != nil {
		return n, err
	}
	return n, CloseWrite(conn)
}

// IsHarmless returns true for errors that are expected when a peer
// goes away mid-exchange.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
