// Package bufstream wraps a duplex byte stream, such as a net.Conn, with a
// pair of fully independent buffers: one for inbound bytes, one for outbound
// bytes. Reads and writes on the wrapped stream are served from memory and
// only reach the underlying resource in bulk, amortizing per-call costs such
// as system calls.
//
// The two buffers share no state. A protocol that needs its read and write
// offsets synchronized (for example a file opened for both reading and
// writing) must arrange that itself.
//
// A Stream can be dismantled with Release, which flushes buffered output and
// hands the underlying resource back. When that flush fails the stream is not
// lost: Release returns an *UnwrapError carrying the error together with the
// reconstructed stream, with every unflushed byte still buffered, so the
// caller can retry or salvage the data. Close, by contrast, flushes on a best
// effort basis and deliberately swallows flush errors.
package bufstream
