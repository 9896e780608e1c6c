// Package ioutils provides small composable reader/writer shims: counting
// wrappers that record call and byte volumes, and builders that stack
// counting, limiting and buffering layers over a raw reader or writer.
package ioutils

import (
	"bufio"
	"io"
	"sync"

	"github.com/CodisLabs/codis/pkg/utils/bufio2"
	"github.com/CodisLabs/codis/pkg/utils/log"
	"github.com/CodisLabs/codis/pkg/utils/sync2/atomic2"
)

type ReaderBuilder struct {
	io.Reader
}

func NewReaderBuilder(r io.Reader) *ReaderBuilder {
	return &ReaderBuilder{r}
}

func (b *ReaderBuilder) Must() *ReaderBuilder {
	b.Reader = &MustReader{Reader: b.Reader}
	return b
}

func (b *ReaderBuilder) Count(c *CountReader) *ReaderBuilder {
	c.Reader = b.Reader
	b.Reader = c
	return b
}

func (b *ReaderBuilder) Limit(n int64) *ReaderBuilder {
	b.Reader = io.LimitReader(b.Reader, n)
	return b
}

func (b *ReaderBuilder) Buffer(size int) *ReaderBuilder {
	b.Reader = bufio.NewReaderSize(b.Reader, size)
	return b
}

func (b *ReaderBuilder) Buffer2(size int) *ReaderBuilder {
	b.Reader = bufio2.NewReaderSize(b.Reader, size)
	return b
}

type MustReader struct {
	io.Reader
}

func (r *MustReader) Read(b []byte) (int, error) {
	n, err := r.Reader.Read(b)
	if err != nil {
		log.PanicErrorf(err, "read bytes failed")
	}
	return n, nil
}

// CountReader records how many Read calls reached the wrapped reader and how
// many bytes they returned.
type CountReader struct {
	io.Reader
	Bytes atomic2.Int64
	Calls atomic2.Int64
}

func NewCountReader(r io.Reader) *CountReader {
	return &CountReader{Reader: r}
}

func (r *CountReader) Read(b []byte) (int, error) {
	n, err := r.Reader.Read(b)
	r.Calls.Incr()
	r.Bytes.Add(int64(n))
	return n, err
}

type WriterBuilder struct {
	io.Writer
}

func NewWriterBuilder(w io.Writer) *WriterBuilder {
	return &WriterBuilder{w}
}

func (b *WriterBuilder) Must() *WriterBuilder {
	b.Writer = &MustWriter{Writer: b.Writer}
	return b
}

func (b *WriterBuilder) Count(c *CountWriter) *WriterBuilder {
	c.Writer = b.Writer
	b.Writer = c
	return b
}

func (b *WriterBuilder) Mutex(l sync.Locker) *WriterBuilder {
	b.Writer = &MutexWriter{Writer: b.Writer, L: l}
	return b
}

func (b *WriterBuilder) Buffer(size int) *WriterBuilder {
	b.Writer = bufio.NewWriterSize(b.Writer, size)
	return b
}

func (b *WriterBuilder) Buffer2(size int) *WriterBuilder {
	b.Writer = bufio2.NewWriterSize(b.Writer, size)
	return b
}

type MustWriter struct {
	io.Writer
}

func (w *MustWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	if err != nil {
		log.PanicErrorf(err, "write bytes failed")
	}
	return n, nil
}

// CountWriter records how many Write calls reached the wrapped writer and
// how many bytes they accepted.
type CountWriter struct {
	io.Writer
	Bytes atomic2.Int64
	Calls atomic2.Int64
}

func NewCountWriter(w io.Writer) *CountWriter {
	return &CountWriter{Writer: w}
}

func (w *CountWriter) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	w.Calls.Incr()
	w.Bytes.Add(int64(n))
	return n, err
}

type MutexWriter struct {
	io.Writer
	L sync.Locker
}

func (w *MutexWriter) Write(b []byte) (int, error) {
	w.L.Lock()
	n, err := w.Writer.Write(b)
	w.L.Unlock()
	return n, err
}

// CountConn wraps a duplex resource, counting calls and bytes on both
// directions independently.
type CountConn struct {
	rw io.ReadWriter

	R CountReader
	W CountWriter
}

func NewCountConn(rw io.ReadWriter) *CountConn {
	c := &CountConn{rw: rw}
	c.R.Reader = rw
	c.W.Writer = rw
	return c
}

func (c *CountConn) Read(b []byte) (int, error) {
	return c.R.Read(b)
}

func (c *CountConn) Write(b []byte) (int, error) {
	return c.W.Write(b)
}
