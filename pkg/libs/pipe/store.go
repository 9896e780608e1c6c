package pipe

import (
	"io"
	"os"

	"github.com/CodisLabs/codis/pkg/utils/bytesize"
	"github.com/CodisLabs/codis/pkg/utils/errors"
)

// store is the byte storage behind a pipe: a bounded region with independent
// read/write cursors. ReadSome and WriteSome move as many bytes as the
// current cursor positions allow, possibly zero.
type store interface {
	ReadSome(b []byte) (int, error)
	Buffered() int
	CloseReader() error

	WriteSome(b []byte) (int, error)
	Available() int
	CloseWriter() error
}

const (
	memStorePageSize     = 4096
	defaultMemStoreSize  = bytesize.KB * 64
	fileStorePageSize    = bytesize.MB * 4
	defaultFileStoreSize = bytesize.MB * 256
)

func align(n, unit int) int {
	if n < unit {
		return unit
	}
	return (n + unit - 1) / unit * unit
}

func roffset(n, size int, rpos, wpos uint64) (nn int, offset uint64) {
	if d := int(wpos - rpos); d < n {
		n = d
	}
	offset = rpos % uint64(size)
	if d := size - int(offset); d < n {
		n = d
	}
	return n, offset
}

func woffset(n, size int, rpos, wpos uint64) (nn int, offset uint64) {
	if d := size - int(wpos-rpos); d < n {
		n = d
	}
	offset = wpos % uint64(size)
	if d := size - int(offset); d < n {
		n = d
	}
	return n, offset
}

type memStore struct {
	buf []byte

	rpos uint64
	wpos uint64
}

func newMemStoreSize(size int) *memStore {
	if size <= 0 {
		size = defaultMemStoreSize
	}
	return &memStore{buf: make([]byte, align(size, memStorePageSize))}
}

func (p *memStore) ReadSome(b []byte) (int, error) {
	if len(p.buf) == 0 {
		return 0, errors.Trace(io.ErrClosedPipe)
	}
	n, offset := roffset(len(b), len(p.buf), p.rpos, p.wpos)
	copy(b[:n], p.buf[offset:])

	p.rpos += uint64(n)
	if p.rpos == p.wpos {
		p.rpos = 0
		p.wpos = 0
	}
	return n, nil
}

func (p *memStore) Buffered() int {
	if len(p.buf) == 0 {
		return 0
	}
	return int(p.wpos - p.rpos)
}

func (p *memStore) CloseReader() error {
	p.buf = nil
	return nil
}

func (p *memStore) WriteSome(b []byte) (int, error) {
	if len(p.buf) == 0 {
		return 0, errors.Trace(io.ErrClosedPipe)
	}
	n, offset := woffset(len(b), len(p.buf), p.rpos, p.wpos)
	copy(p.buf[offset:], b[:n])

	p.wpos += uint64(n)
	return n, nil
}

func (p *memStore) Available() int {
	if len(p.buf) == 0 {
		return 0
	}
	return len(p.buf) - int(p.wpos-p.rpos)
}

func (p *memStore) CloseWriter() error {
	return nil
}

// fileStore spools pipe contents through a file instead of memory, for
// buffers too large to keep resident.
type fileStore struct {
	file *os.File
	size int

	rpos uint64
	wpos uint64
}

func newFileStoreSize(file *os.File, size int) *fileStore {
	if size <= 0 {
		size = defaultFileStoreSize
	}
	return &fileStore{file: file, size: align(size, fileStorePageSize)}
}

func (p *fileStore) ReadSome(b []byte) (int, error) {
	if p.file == nil {
		return 0, errors.Trace(io.ErrClosedPipe)
	}
	n, offset := roffset(len(b), p.size, p.rpos, p.wpos)
	nn, err := p.file.ReadAt(b[:n], int64(offset))

	p.rpos += uint64(nn)
	if p.rpos == p.wpos {
		p.rpos = 0
		p.wpos = 0
		if err == nil {
			err = p.file.Truncate(0)
		}
	}
	return nn, errors.Trace(err)
}

func (p *fileStore) Buffered() int {
	if p.file == nil {
		return 0
	}
	return int(p.wpos - p.rpos)
}

func (p *fileStore) CloseReader() error {
	if f := p.file; f != nil {
		p.file = nil
		return errors.Trace(f.Truncate(0))
	}
	return nil
}

func (p *fileStore) WriteSome(b []byte) (int, error) {
	if p.file == nil {
		return 0, errors.Trace(io.ErrClosedPipe)
	}
	n, offset := woffset(len(b), p.size, p.rpos, p.wpos)
	nn, err := p.file.WriteAt(b[:n], int64(offset))

	p.wpos += uint64(nn)
	return nn, errors.Trace(err)
}

func (p *fileStore) Available() int {
	if p.file == nil {
		return 0
	}
	return p.size - int(p.wpos-p.rpos)
}

func (p *fileStore) CloseWriter() error {
	return nil
}
