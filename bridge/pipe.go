package bridge

import (
	"io"
	"sync"
)

// pipe is a bounded in-memory byte queue with independently closable ends.
type pipe struct {
	mu   sync.Mutex
	cond sync.Cond

	buf     []byte
	max     int
	rclosed bool
	wclosed bool
}

// PipeReader is the read half of a pipe created by Simplex.
type PipeReader struct {
	p *pipe
}

// PipeWriter is the write half of a pipe created by Simplex.
type PipeWriter struct {
	p *pipe
}

// Simplex creates a one-direction byte pipe buffering at most capacity bytes.
// Writes block while the buffer is full; reads block while it is empty.
// Closing the writer makes reads return io.EOF once the buffer drains.
// Closing the reader makes pending and future writes fail with io.ErrClosedPipe.
func Simplex(capacity int) (*PipeReader, *PipeWriter) {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	p := &pipe{max: capacity}
	p.cond.L = &p.mu
	return &PipeReader{p: p}, &PipeWriter{p: p}
}

// Read reads up to len(b) buffered bytes.
func (r *PipeReader) Read(b []byte) (int, error) {
	p := r.p
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.rclosed {
			return 0, io.ErrClosedPipe
		}
		if len(p.buf) > 0 {
			n := copy(b, p.buf)
			p.buf = p.buf[n:]
			p.cond.Broadcast()
			return n, nil
		}
		if p.wclosed {
			return 0, io.EOF
		}
		if len(b) == 0 {
			return 0, nil
		}
		p.cond.Wait()
	}
}

// Close closes the reader. Writers blocked on a full buffer are released.
func (r *PipeReader) Close() error {
	p := r.p
	p.mu.Lock()
	p.rclosed = true
	p.buf = nil
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}

// Write writes all of b, blocking while the buffer is full.
func (w *PipeWriter) Write(b []byte) (int, error) {
	p := w.p
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for n < len(b) {
		if p.wclosed || p.rclosed {
			return n, io.ErrClosedPipe
		}
		room := p.max - len(p.buf)
		if room == 0 {
			p.cond.Wait()
			continue
		}
		k := min(room, len(b)-n)
		p.buf = append(p.buf, b[n:n+k]...)
		n += k
		p.cond.Broadcast()
	}
	return n, nil
}

// Close closes the writer. Readers see io.EOF after the buffer drains.
func (w *PipeWriter) Close() error {
	p := w.p
	p.mu.Lock()
	p.wclosed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}
