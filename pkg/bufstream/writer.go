package bufstream

import (
	"io"

	"github.com/CodisLabs/codis/pkg/utils/errors"
)

// Flusher is the optional flush capability of an underlying resource. When
// the resource implements it, Writer.Flush forwards the flush after draining
// its own buffer.
type Flusher interface {
	Flush() error
}

// Writer buffers output to an io.Writer, writing through in bulk once its
// capacity fills up. Unlike bufio.Writer, a failed flush keeps the unwritten
// tail buffered, so the writer can be flushed again or released without
// losing bytes.
type Writer struct {
	wt  io.Writer
	buf []byte

	n int
}

func NewWriter(wt io.Writer) *Writer {
	return NewWriterSize(wt, DefaultBufferSize)
}

func NewWriterSize(wt io.Writer, size int) *Writer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Writer{wt: wt, buf: make([]byte, size)}
}

// Buffered returns the number of bytes accepted but not yet flushed.
func (p *Writer) Buffered() int {
	return p.n
}

// Available returns how many bytes can be accepted before the next flush.
func (p *Writer) Available() int {
	return len(p.buf) - p.n
}

// Write buffers b, flushing previously buffered bytes first if b does not
// fit. Writes of at least the buffer capacity bypass the buffer and go
// straight to the underlying writer, after any pending flush, so buffered
// bytes are never reordered. A flush failure is returned before any byte of
// b is accepted.
func (p *Writer) Write(b []byte) (int, error) {
	if p.wt == nil {
		return 0, errors.Trace(ErrReleased)
	}
	if len(b) == 0 {
		return 0, nil
	}
	if len(b) > p.Available() && p.n != 0 {
		if err := p.flush(); err != nil {
			return 0, err
		}
	}
	if len(b) >= len(p.buf) {
		n, err := p.wt.Write(b)
		return n, errors.Trace(err)
	}
	n := copy(p.buf[p.n:], b)
	p.n += n
	return n, nil
}

func (p *Writer) WriteByte(c byte) error {
	if p.wt == nil {
		return errors.Trace(ErrReleased)
	}
	if p.Available() == 0 {
		if err := p.flush(); err != nil {
			return err
		}
	}
	p.buf[p.n] = c
	p.n++
	return nil
}

// Flush writes every buffered byte to the underlying writer, then forwards
// the flush when the writer is a Flusher. On failure the unwritten tail is
// compacted to the front of the buffer and stays recoverable.
func (p *Writer) Flush() error {
	if p.wt == nil {
		return errors.Trace(ErrReleased)
	}
	return p.flush()
}

func (p *Writer) flush() error {
	if p.n != 0 {
		n, err := p.wt.Write(p.buf[:p.n])
		if n > 0 && n < p.n {
			copy(p.buf, p.buf[n:p.n])
		}
		p.n -= n
		if err != nil {
			return errors.Trace(err)
		}
		if p.n != 0 {
			return errors.Trace(io.ErrShortWrite)
		}
	}
	if f, ok := p.wt.(Flusher); ok {
		return errors.Trace(f.Flush())
	}
	return nil
}

// Release flushes buffered output and hands back the underlying writer,
// consuming the Writer. On failure the Writer is left whole, every unflushed
// byte still buffered, so the caller can retry; from the caller's view the
// flush is all-or-nothing.
func (p *Writer) Release() (io.Writer, error) {
	if p.wt == nil {
		return nil, errors.Trace(ErrReleased)
	}
	if err := p.flush(); err != nil {
		return nil, err
	}
	wt := p.wt
	p.wt = nil
	return wt, nil
}
