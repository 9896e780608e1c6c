package bufstream

import (
	"io"

	"github.com/CodisLabs/codis/pkg/utils/bytesize"
	"github.com/CodisLabs/codis/pkg/utils/errors"
	"github.com/CodisLabs/codis/pkg/utils/log"
)

const DefaultBufferSize = bytesize.KB * 64

// ErrReleased is returned by every operation on a stream whose underlying
// resource has already been reclaimed with Release.
var ErrReleased = errors.Errorf("bufstream: stream already released")

// resource adapts the duplex resource for the input buffer: reads pass
// straight through, while the writer slot holds the output buffer. The slot
// is empty only inside Release, which restores it before returning on
// failure; no other operation can run in between.
type resource struct {
	rw io.ReadWriter
	wt *Writer
}

func (p *resource) Read(b []byte) (int, error) {
	if p.rw == nil {
		return 0, errors.Trace(ErrReleased)
	}
	return p.rw.Read(b)
}

// Stream is a duplex resource wrapped with an input buffer and an output
// buffer. The two buffers are fully independent: writes never disturb the
// read window and reads never disturb pending output.
//
// A Stream must not be used from multiple goroutines without external
// synchronization. Every call blocks directly on the underlying resource;
// cancellation and timeouts, if any, belong to the resource itself.
type Stream struct {
	rd *Reader
	rs *resource
}

// New wraps rw with DefaultBufferSize input and output buffers.
func New(rw io.ReadWriter) *Stream {
	return NewSize(rw, DefaultBufferSize, DefaultBufferSize)
}

// NewSize wraps rw with an input buffer of rsize bytes and an output buffer
// of wsize bytes. Sizes that are zero or negative fall back to
// DefaultBufferSize.
func NewSize(rw io.ReadWriter, rsize, wsize int) *Stream {
	rs := &resource{rw: rw, wt: NewWriterSize(rw, wsize)}
	return &Stream{rd: NewReaderSize(rs, rsize), rs: rs}
}

func (s *Stream) Read(b []byte) (int, error) {
	if s.rs.rw == nil {
		return 0, errors.Trace(ErrReleased)
	}
	return s.rd.Read(b)
}

func (s *Stream) ReadByte() (byte, error) {
	if s.rs.rw == nil {
		return 0, errors.Trace(ErrReleased)
	}
	return s.rd.ReadByte()
}

// Fill exposes the input buffer's unconsumed window, see Reader.Fill.
func (s *Stream) Fill() ([]byte, error) {
	if s.rs.rw == nil {
		return nil, errors.Trace(ErrReleased)
	}
	return s.rd.Fill()
}

// Consume drops n bytes from the input buffer's window, see Reader.Consume.
// On a released stream it is a no-op.
func (s *Stream) Consume(n int) {
	if s.rs.rw == nil {
		return
	}
	s.rd.Consume(n)
}

// Buffered returns the number of unconsumed bytes in the input buffer, or
// zero once the stream has been released.
func (s *Stream) Buffered() int {
	if s.rs.rw == nil {
		return 0
	}
	return s.rd.Buffered()
}

func (s *Stream) Write(b []byte) (int, error) {
	if w := s.rs.wt; w != nil {
		return w.Write(b)
	}
	return 0, errors.Trace(ErrReleased)
}

func (s *Stream) WriteByte(c byte) error {
	if w := s.rs.wt; w != nil {
		return w.WriteByte(c)
	}
	return errors.Trace(ErrReleased)
}

// Flush forces buffered output to the underlying resource.
func (s *Stream) Flush() error {
	if w := s.rs.wt; w != nil {
		return w.Flush()
	}
	return errors.Trace(ErrReleased)
}

// Available returns the free space left in the output buffer.
func (s *Stream) Available() int {
	if w := s.rs.wt; w != nil {
		return w.Available()
	}
	return 0
}

// Resource returns the underlying resource, bypassing both buffers. Reading
// from or writing to it directly desynchronizes the buffered state; use it
// only for out-of-band operations such as setting deadlines.
func (s *Stream) Resource() io.ReadWriter {
	return s.rs.rw
}

// Release flushes buffered output and returns the underlying resource,
// consuming the stream: any bytes still sitting in the input buffer are
// discarded and every later operation fails with ErrReleased.
//
// When the flush fails the stream is not lost. Release returns an
// *UnwrapError pairing the cause with the stream itself, reassembled and
// fully usable, with every unflushed byte still buffered, so the caller can
// retry the release, keep using the stream, or salvage the buffered bytes.
func (s *Stream) Release() (io.ReadWriter, error) {
	w := s.rs.wt
	if w == nil {
		return nil, errors.Trace(ErrReleased)
	}
	s.rs.wt = nil
	if _, err := w.Release(); err != nil {
		s.rs.wt = w
		return nil, &UnwrapError{Stream: s, Err: err}
	}
	rw := s.rs.rw
	s.rs.rw = nil
	return rw, nil
}

// Close flushes buffered output on a best effort basis, then closes the
// underlying resource when it implements io.Closer. A flush failure at this
// point is deliberately swallowed: no caller is positioned to act on it
// during teardown, so it is only logged. Closing twice is a no-op.
func (s *Stream) Close() error {
	w, rw := s.rs.wt, s.rs.rw
	if w == nil || rw == nil {
		return nil
	}
	s.rs.wt = nil
	s.rs.rw = nil
	if err := w.Flush(); err != nil {
		log.Debugf("bufstream: discarding flush error on close: %v", err)
	}
	if c, ok := rw.(io.Closer); ok {
		return errors.Trace(c.Close())
	}
	return nil
}

// UnwrapError is returned by Release when flushing buffered output fails. It
// carries the I/O error together with the reconstructed stream.
type UnwrapError struct {
	Stream *Stream
	Err    error
}

func (e *UnwrapError) Error() string {
	return "bufstream: release failed: " + e.Err.Error()
}

func (e *UnwrapError) Unwrap() error {
	return e.Err
}
