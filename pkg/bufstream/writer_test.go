package bufstream

import (
	"bytes"
	"testing"

	"github.com/CodisLabs/codis/pkg/utils/assert"
	"github.com/CodisLabs/codis/pkg/utils/errors"

	"github.com/kex103/bufstream/pkg/libs/ioutils"
)

var errFault = errors.Errorf("synthetic write fault")

type faultWriter struct {
	faults int
	sink   bytes.Buffer
}

func (w *faultWriter) Write(b []byte) (int, error) {
	if w.faults > 0 {
		w.faults--
		return 0, errFault
	}
	return w.sink.Write(b)
}

type shortWriter struct {
	limit int
	fail  bool
	sink  bytes.Buffer
}

func (w *shortWriter) Write(b []byte) (int, error) {
	if w.fail && len(b) > w.limit {
		n, _ := w.sink.Write(b[:w.limit])
		return n, errFault
	}
	return w.sink.Write(b)
}

type flushRecorder struct {
	bytes.Buffer
	flushed int
}

func (w *flushRecorder) Flush() error {
	w.flushed++
	return nil
}

func TestWriterThreshold(t *testing.T) {
	cw := ioutils.NewCountWriter(&bytes.Buffer{})
	w := NewWriterSize(cw, 64)
	for i := 0; i < 63; i++ {
		assert.MustNoError(w.WriteByte(byte(i)))
	}
	assert.Must(w.Buffered() == 63)
	assert.Must(cw.Calls.Int64() == 0)

	n, err := w.Write([]byte{63, 64})
	assert.MustNoError(err)
	assert.Must(n == 2)
	assert.Must(cw.Calls.Int64() == 1)
	assert.Must(cw.Bytes.Int64() == 63)
	assert.Must(w.Buffered() == 2)

	assert.MustNoError(w.Flush())
	assert.Must(cw.Calls.Int64() == 2)
	assert.Must(cw.Bytes.Int64() == 65)
	assert.Must(w.Buffered() == 0)
}

func TestWriterBypassBoundary(t *testing.T) {
	cw := ioutils.NewCountWriter(&bytes.Buffer{})
	w := NewWriterSize(cw, 64)

	n, err := w.Write(make([]byte, 64))
	assert.MustNoError(err)
	assert.Must(n == 64)
	assert.Must(w.Buffered() == 0)
	assert.Must(cw.Calls.Int64() == 1)
	assert.Must(cw.Bytes.Int64() == 64)

	n, err = w.Write(make([]byte, 65))
	assert.MustNoError(err)
	assert.Must(n == 65)
	assert.Must(w.Buffered() == 0)
	assert.Must(cw.Calls.Int64() == 2)

	n, err = w.Write(make([]byte, 63))
	assert.MustNoError(err)
	assert.Must(n == 63)
	assert.Must(w.Buffered() == 63)
	assert.Must(cw.Calls.Int64() == 2)
}

func TestWriterBypassFlushesFirst(t *testing.T) {
	cw := ioutils.NewCountWriter(&bytes.Buffer{})
	w := NewWriterSize(cw, 64)

	_, err := w.Write([]byte("abc"))
	assert.MustNoError(err)

	n, err := w.Write(make([]byte, 64))
	assert.MustNoError(err)
	assert.Must(n == 64)
	assert.Must(cw.Calls.Int64() == 2)
	assert.Must(cw.Bytes.Int64() == 67)
}

func TestWriterZeroLength(t *testing.T) {
	cw := ioutils.NewCountWriter(&bytes.Buffer{})
	w := NewWriterSize(cw, 64)
	n, err := w.Write(nil)
	assert.MustNoError(err)
	assert.Must(n == 0)
	assert.Must(cw.Calls.Int64() == 0)
}

func TestWriterFlushFailureKeepsTail(t *testing.T) {
	fw := &faultWriter{faults: 1}
	w := NewWriterSize(fw, 64)

	_, err := w.Write([]byte("hello"))
	assert.MustNoError(err)

	assert.Must(w.Flush() != nil)
	assert.Must(w.Buffered() == 5)
	assert.Must(fw.sink.Len() == 0)

	assert.MustNoError(w.Flush())
	assert.Must(fw.sink.String() == "hello")
	assert.Must(w.Buffered() == 0)
}

func TestWriterPartialFlushCompacts(t *testing.T) {
	sw := &shortWriter{limit: 3, fail: true}
	w := NewWriterSize(sw, 64)

	_, err := w.Write([]byte("hello"))
	assert.MustNoError(err)

	assert.Must(w.Flush() != nil)
	assert.Must(w.Buffered() == 2)

	sw.fail = false
	assert.MustNoError(w.Flush())
	assert.Must(sw.sink.String() == "hello")
}

func TestWriterFlushFailureBlocksNewBytes(t *testing.T) {
	fw := &faultWriter{}
	w := NewWriterSize(fw, 8)

	// fill the buffer in two halves, a capacity-sized write would bypass it
	_, err := w.Write([]byte("1234"))
	assert.MustNoError(err)
	_, err = w.Write([]byte("5678"))
	assert.MustNoError(err)
	assert.Must(w.Buffered() == 8)
	assert.Must(fw.sink.Len() == 0)

	fw.faults = 1
	n, err := w.Write([]byte("9"))
	assert.Must(err != nil)
	assert.Must(n == 0)
	assert.Must(w.Buffered() == 8)

	assert.MustNoError(w.Flush())
	n, err = w.Write([]byte("9"))
	assert.MustNoError(err)
	assert.Must(n == 1)
	assert.MustNoError(w.Flush())
	assert.Must(fw.sink.String() == "123456789")
}

func TestWriterForwardsFlush(t *testing.T) {
	fr := &flushRecorder{}
	w := NewWriterSize(fr, 64)

	_, err := w.Write([]byte("ping"))
	assert.MustNoError(err)
	assert.MustNoError(w.Flush())
	assert.Must(fr.flushed == 1)
	assert.Must(fr.String() == "ping")
}

func TestWriterRelease(t *testing.T) {
	var sink bytes.Buffer
	w := NewWriterSize(&sink, 64)

	_, err := w.Write([]byte("tail"))
	assert.MustNoError(err)

	wt, err := w.Release()
	assert.MustNoError(err)
	assert.Must(wt == &sink)
	assert.Must(sink.String() == "tail")

	_, err = w.Write([]byte("dead"))
	assert.Must(err != nil)
	assert.Must(w.Flush() != nil)
}

func TestWriterReleaseFailureKeepsWriter(t *testing.T) {
	fw := &faultWriter{faults: 1}
	w := NewWriterSize(fw, 64)

	_, err := w.Write([]byte("keep"))
	assert.MustNoError(err)

	wt, err := w.Release()
	assert.Must(wt == nil)
	assert.Must(err != nil)
	assert.Must(w.Buffered() == 4)

	wt, err = w.Release()
	assert.MustNoError(err)
	assert.Must(wt == fw)
	assert.Must(fw.sink.String() == "keep")
}
