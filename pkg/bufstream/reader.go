package bufstream

import (
	"io"
)

// Reader buffers input from an io.Reader, refilling its window with single
// bulk reads. Unconsumed bytes are never dropped until the caller takes them.
//
// Errors on the read path are passed through untouched, io.EOF included, so
// the Reader composes with io.Copy and friends.
type Reader struct {
	rd  io.Reader
	buf []byte

	rpos int
	wpos int
	err  error
}

func NewReader(rd io.Reader) *Reader {
	return NewReaderSize(rd, DefaultBufferSize)
}

func NewReaderSize(rd io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Reader{rd: rd, buf: make([]byte, size)}
}

// Buffered returns the number of bytes sitting in the unconsumed window.
func (p *Reader) Buffered() int {
	return p.wpos - p.rpos
}

func (p *Reader) readErr() error {
	err := p.err
	p.err = nil
	return err
}

// Fill returns the unconsumed window, issuing one bulk read against the
// underlying reader when the window is empty. The returned slice is only
// valid until the next Read, ReadByte or Fill. At end of stream the window
// is empty and the error is io.EOF.
func (p *Reader) Fill() ([]byte, error) {
	if p.rpos == p.wpos {
		if p.err != nil {
			return nil, p.readErr()
		}
		p.rpos, p.wpos = 0, 0
		n, err := p.rd.Read(p.buf)
		p.wpos = n
		p.err = err
		if n == 0 && err != nil {
			return nil, p.readErr()
		}
	}
	return p.buf[p.rpos:p.wpos], nil
}

// Consume drops n bytes from the front of the unconsumed window. Asking for
// more than Buffered is a caller error and is truncated to the window size.
func (p *Reader) Consume(n int) {
	if n > p.Buffered() {
		n = p.Buffered()
	}
	if n > 0 {
		p.rpos += n
	}
}

// Read copies buffered bytes into b, refilling the window when it is empty.
// A request of at least the buffer capacity with an empty window skips the
// buffer and reads straight into b. A zero-length b returns immediately
// without touching the underlying reader.
func (p *Reader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if p.rpos == p.wpos {
		if p.err != nil {
			return 0, p.readErr()
		}
		if len(b) >= len(p.buf) {
			return p.rd.Read(b)
		}
		p.rpos, p.wpos = 0, 0
		n, err := p.rd.Read(p.buf)
		if n == 0 {
			return 0, err
		}
		p.wpos = n
		p.err = err
	}
	n := copy(b, p.buf[p.rpos:p.wpos])
	p.rpos += n
	return n, nil
}

// maxEmptyReads bounds how many empty, error-free reads ReadByte tolerates
// from a misbehaving resource before reporting io.ErrNoProgress.
const maxEmptyReads = 100

func (p *Reader) ReadByte() (byte, error) {
	for i := 0; p.rpos == p.wpos; i++ {
		if i == maxEmptyReads {
			return 0, io.ErrNoProgress
		}
		if _, err := p.Fill(); err != nil {
			return 0, err
		}
	}
	c := p.buf[p.rpos]
	p.rpos++
	return c, nil
}
