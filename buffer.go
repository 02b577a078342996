package reactor

import "bytes"

// defaultBufferSize is the initial backing storage allocated for a Buffer.
const defaultBufferSize = 1024

// Buffer is a resizable byte ring with separate read and write cursors.
// It is not safe for concurrent use; every Buffer in this package belongs
// to exactly one Connection and is only ever touched on that Connection's
// owning EventLoop goroutine.
type Buffer struct {
	buf      []byte
	readIdx  int
	writeIdx int
}

// NewBuffer returns a Buffer with the default 1024-byte backing storage.
func NewBuffer() *Buffer {
	return &Buffer{buf: make([]byte, defaultBufferSize)}
}

// Readable returns the number of bytes available to read.
func (b *Buffer) Readable() int { return b.writeIdx - b.readIdx }

// BackWritable returns the space available after the write cursor.
func (b *Buffer) BackWritable() int { return len(b.buf) - b.writeIdx }

// FrontWritable returns the space available before the read cursor.
func (b *Buffer) FrontWritable() int { return b.readIdx }

// ReadPtr returns the readable region as a slice. The slice aliases the
// Buffer's backing storage and is only valid until the next mutating call.
func (b *Buffer) ReadPtr() []byte { return b.buf[b.readIdx:b.writeIdx] }

// WritePtr returns the writable region after the write cursor. The slice
// aliases the Buffer's backing storage and is only valid until the next
// mutating call.
func (b *Buffer) WritePtr() []byte { return b.buf[b.writeIdx:] }

// EnsureSpace guarantees at least n bytes are writable after the write
// cursor, compacting or growing the backing storage as needed.
func (b *Buffer) EnsureSpace(n int) {
	if b.BackWritable() >= n {
		return
	}
	if b.BackWritable()+b.FrontWritable() >= n {
		readable := b.Readable()
		copy(b.buf, b.buf[b.readIdx:b.writeIdx])
		b.readIdx = 0
		b.writeIdx = readable
		return
	}
	grown := make([]byte, b.writeIdx+n)
	copy(grown, b.buf[:b.writeIdx])
	b.buf = grown
}

// Write appends src to the buffer, growing or compacting storage first,
// and advances the write cursor by len(src).
func (b *Buffer) Write(src []byte) (int, error) {
	b.EnsureSpace(len(src))
	n := copy(b.buf[b.writeIdx:], src)
	b.writeIdx += n
	return n, nil
}

// Peek copies up to len(dst) readable bytes into dst without advancing the
// read cursor, returning the number of bytes copied.
func (b *Buffer) Peek(dst []byte) int {
	return copy(dst, b.buf[b.readIdx:b.writeIdx])
}

// Read copies n readable bytes into dst and advances the read cursor by n.
// It panics if n exceeds Readable — a precondition violation is a
// programmer error, not a recoverable condition (spec.md §7).
func (b *Buffer) Read(dst []byte, n int) {
	if n > b.Readable() {
		panic("reactor: Buffer.Read: n exceeds readable bytes")
	}
	copy(dst, b.buf[b.readIdx:b.readIdx+n])
	b.readIdx += n
}

// AdvanceRead moves the read cursor forward by n without copying, used
// after a caller has consumed bytes directly via ReadPtr. It panics if n
// exceeds Readable.
func (b *Buffer) AdvanceRead(n int) {
	if n == 0 {
		return
	}
	if n > b.Readable() {
		panic("reactor: Buffer.AdvanceRead: n exceeds readable bytes")
	}
	b.readIdx += n
}

// AdvanceWrite moves the write cursor forward by n, used after a caller has
// written directly into WritePtr. It panics if n exceeds BackWritable.
func (b *Buffer) AdvanceWrite(n int) {
	if n > b.BackWritable() {
		panic("reactor: Buffer.AdvanceWrite: n exceeds back-writable bytes")
	}
	b.writeIdx += n
}

// ReadLine scans the readable region for a line terminator, preferring
// CRLF over a bare LF, and returns the span including the terminator
// without advancing the read cursor. It returns nil if no terminator is
// present in the currently readable bytes.
func (b *Buffer) ReadLine() []byte {
	readable := b.buf[b.readIdx:b.writeIdx]
	if p := bytes.Index(readable, []byte("\r\n")); p >= 0 {
		return readable[:p+2]
	}
	if p := bytes.IndexByte(readable, '\n'); p >= 0 {
		return readable[:p+1]
	}
	return nil
}

// ReadLineAdvance returns the next line (per ReadLine's semantics) and
// advances the read cursor past it. It returns nil without advancing if no
// complete line is currently buffered.
func (b *Buffer) ReadLineAdvance() []byte {
	line := b.ReadLine()
	if line == nil {
		return nil
	}
	out := make([]byte, len(line))
	copy(out, line)
	b.AdvanceRead(len(line))
	return out
}

// Clear resets both cursors to zero, discarding all buffered data without
// releasing the backing storage.
func (b *Buffer) Clear() {
	b.readIdx = 0
	b.writeIdx = 0
}
