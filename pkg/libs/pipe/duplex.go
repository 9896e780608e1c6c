package pipe

import (
	"os"
)

// Endpoint is one side of a duplex byte stream built from two crossed pipes.
// Writes land in the peer's inbound pipe; reads drain the local inbound
// pipe. It implements io.ReadWriteCloser.
type Endpoint struct {
	rd *Pipe
	wt *Pipe
}

// Duplex returns the two endpoints of an in-memory duplex stream with
// default-sized pipes in each direction.
func Duplex() (*Endpoint, *Endpoint) {
	return DuplexSize(defaultMemStoreSize)
}

// DuplexSize is like Duplex with an explicit per-direction pipe size.
func DuplexSize(size int) (*Endpoint, *Endpoint) {
	return cross(NewPipeSize(size), NewPipeSize(size))
}

// DuplexFile is like Duplex but spools each direction through a file, for
// streams too large to keep resident. The files must be opened read-write
// and are truncated as bytes are drained.
func DuplexFile(f1, f2 *os.File, size int) (*Endpoint, *Endpoint) {
	return cross(NewPipeFile(f1, size), NewPipeFile(f2, size))
}

func cross(p1, p2 *Pipe) (*Endpoint, *Endpoint) {
	return &Endpoint{rd: p1, wt: p2}, &Endpoint{rd: p2, wt: p1}
}

func (e *Endpoint) Read(b []byte) (int, error) {
	return e.rd.Read(b)
}

func (e *Endpoint) Write(b []byte) (int, error) {
	return e.wt.Write(b)
}

// Buffered reports how many bytes are waiting to be read from this side.
func (e *Endpoint) Buffered() (int, error) {
	return e.rd.Buffered()
}

// CloseWrite half-closes the endpoint: the peer drains whatever was written
// and then observes io.EOF. Reads on this side keep working.
func (e *Endpoint) CloseWrite() error {
	return e.wt.CloseWriter(nil)
}

// CloseWithError tears the endpoint down, handing err (or the defaults of
// CloseWriter/CloseReader) to whichever side of the peer is still active.
func (e *Endpoint) CloseWithError(err error) error {
	err1 := e.wt.CloseWriter(err)
	err2 := e.rd.CloseReader(err)
	if err1 != nil {
		return err1
	}
	return err2
}

func (e *Endpoint) Close() error {
	return e.CloseWithError(nil)
}
