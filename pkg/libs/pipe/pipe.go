// Package pipe provides bounded unidirectional pipes over in-memory or
// file-backed storage, and duplex endpoints built from a crossed pair of
// them. An Endpoint looks like one side of a connection: what one side
// writes, the other side reads. It serves as an in-process stand-in for a
// network connection.
package pipe

import (
	"io"
	"os"
	"sync"

	"github.com/CodisLabs/codis/pkg/utils/errors"
)

// Pipe is a bounded FIFO of bytes. Read blocks while the pipe is empty and
// the write side is open; Write blocks while the pipe is full and the read
// side is open. After CloseWriter, reads drain the remaining bytes and then
// observe io.EOF (or the error given to CloseWriter).
type Pipe struct {
	rd, wt struct {
		sync.Mutex
		cond *sync.Cond
		err  error
	}
	mu sync.Mutex

	store store
}

func NewPipe() *Pipe {
	return NewPipeSize(defaultMemStoreSize)
}

func NewPipeSize(size int) *Pipe {
	return newPipe(newMemStoreSize(size))
}

func NewPipeFile(file *os.File, size int) *Pipe {
	return newPipe(newFileStoreSize(file, size))
}

func newPipe(store store) *Pipe {
	p := &Pipe{store: store}
	p.rd.cond = sync.NewCond(&p.mu)
	p.wt.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pipe) Read(b []byte) (int, error) {
	p.rd.Lock()
	defer p.rd.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.rd.err != nil {
			return 0, errors.Trace(io.ErrClosedPipe)
		}
		if len(b) == 0 {
			if p.store.Buffered() != 0 {
				return 0, nil
			}
			return 0, p.wt.err
		}
		n, err := p.store.ReadSome(b)
		if err != nil || n != 0 {
			p.wt.cond.Signal()
			return n, err
		}
		if p.wt.err != nil {
			return 0, p.wt.err
		}
		p.rd.cond.Wait()
	}
}

func (p *Pipe) Buffered() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rd.err != nil {
		return 0, p.rd.err
	}
	if n := p.store.Buffered(); n != 0 {
		return n, nil
	}
	return 0, p.wt.err
}

// CloseReader shuts the read side down. Pending and later writes fail with
// err, or io.ErrClosedPipe when err is nil.
func (p *Pipe) CloseReader(err error) error {
	if err == nil {
		err = errors.Trace(io.ErrClosedPipe)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rd.err == nil {
		p.rd.err = err
	}
	p.rd.cond.Broadcast()
	p.wt.cond.Broadcast()
	return p.store.CloseReader()
}

func (p *Pipe) Write(b []byte) (int, error) {
	p.wt.Lock()
	defer p.wt.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	var nn int
	for {
		if p.wt.err != nil {
			return nn, errors.Trace(io.ErrClosedPipe)
		}
		if p.rd.err != nil {
			return nn, p.rd.err
		}
	again:
		if len(b) == 0 {
			return nn, nil
		}
		n, err := p.store.WriteSome(b)
		if err != nil || n != 0 {
			p.rd.cond.Signal()
			nn, b = nn+n, b[n:]
			if err == nil {
				goto again
			}
			return nn, err
		}
		p.wt.cond.Wait()
	}
}

func (p *Pipe) Available() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wt.err != nil {
		return 0, p.wt.err
	}
	if p.rd.err != nil {
		return 0, p.rd.err
	}
	return p.store.Available(), nil
}

// CloseWriter shuts the write side down. Once the pipe drains, readers
// observe err, or io.EOF when err is nil. The end-of-stream error is kept
// unwrapped so stdlib consumers recognize a clean EOF.
func (p *Pipe) CloseWriter(err error) error {
	if err == nil {
		err = io.EOF
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wt.err == nil {
		p.wt.err = err
	}
	p.rd.cond.Broadcast()
	p.wt.cond.Broadcast()
	return p.store.CloseWriter()
}

func (p *Pipe) Close() {
	p.CloseReader(nil)
	p.CloseWriter(nil)
}
