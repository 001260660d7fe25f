package bridge

import (
	"errors"
	"io"
)

// DefaultBufferSize is the per-direction capacity of a Pipe, and the chunk
// size the stream adapter reads with.
const DefaultBufferSize = 1024

// Conn is one end of a duplex byte connection. The read and write halves are
// owned independently and closed independently.
type Conn struct {
	Reader io.Reader
	Writer io.Writer
}

// Read reads from the read half.
func (c Conn) Read(p []byte) (int, error) {
	if c.Reader == nil {
		return 0, io.EOF
	}
	return c.Reader.Read(p)
}

// Write writes to the write half.
func (c Conn) Write(p []byte) (int, error) {
	if c.Writer == nil {
		return 0, io.ErrClosedPipe
	}
	return c.Writer.Write(p)
}

// CloseRead closes the read half if it can be closed.
func (c Conn) CloseRead() error {
	if cl, ok := c.Reader.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// CloseWrite closes the write half if it can be closed. The peer reading the
// other end sees io.EOF.
func (c Conn) CloseWrite() error {
	if cl, ok := c.Writer.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// Close closes both halves.
func (c Conn) Close() error {
	return errors.Join(c.CloseRead(), c.CloseWrite())
}

// Pipe creates two connected ends of a duplex byte connection. Bytes written
// to one end are read from the other; each direction buffers up to capacity
// bytes.
func Pipe(capacity int) (Conn, Conn) {
	ar, bw := Simplex(capacity)
	br, aw := Simplex(capacity)
	return Conn{Reader: ar, Writer: aw}, Conn{Reader: br, Writer: bw}
}
