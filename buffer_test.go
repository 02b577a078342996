package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWriteReadRoundtrip(t *testing.T) {
	b := NewBuffer()
	n, err := b.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, 11, b.Readable())

	dst := make([]byte, 5)
	b.Read(dst, 5)
	assert.Equal(t, "hello", string(dst))
	assert.Equal(t, 6, b.Readable())
	assert.Equal(t, " world", string(b.ReadPtr()))
}

func TestBufferPeekDoesNotAdvance(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("peekme"))
	dst := make([]byte, 4)
	n := b.Peek(dst)
	assert.Equal(t, 4, n)
	assert.Equal(t, "peek", string(dst))
	assert.Equal(t, 6, b.Readable(), "Peek must not advance the read cursor")
}

func TestBufferAdvanceReadPanicsOnOverrun(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("abc"))
	assert.Panics(t, func() {
		b.AdvanceRead(4)
	})
}

func TestBufferAdvanceWritePanicsOnOverrun(t *testing.T) {
	b := NewBuffer()
	assert.Panics(t, func() {
		b.AdvanceWrite(len(b.buf) + 1)
	})
}

func TestBufferReadPanicsOnOverrun(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("ab"))
	assert.Panics(t, func() {
		b.Read(make([]byte, 3), 3)
	})
}

func TestBufferEnsureSpaceCompactsBeforeGrowing(t *testing.T) {
	b := &Buffer{buf: make([]byte, 8)}
	b.Write([]byte("123456"))
	b.Read(make([]byte, 4), 4)
	originalCap := len(b.buf)

	// 6 bytes free total (2 back + 4 front), request exactly that: should
	// compact in place rather than reallocate.
	b.EnsureSpace(6)
	assert.Equal(t, originalCap, len(b.buf), "EnsureSpace should compact, not grow, when front+back space suffices")
	assert.Equal(t, 0, b.readIdx)
	assert.Equal(t, 2, b.writeIdx)
}

func TestBufferEnsureSpaceGrowsWhenCompactionInsufficient(t *testing.T) {
	b := &Buffer{buf: make([]byte, 4)}
	b.Write([]byte("ab"))
	b.EnsureSpace(10)
	assert.GreaterOrEqual(t, len(b.buf), 12)
	assert.Equal(t, "ab", string(b.ReadPtr()))
}

func TestBufferReadLinePrefersCRLFOverBareLF(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("first\r\nsecond\nthird"))

	line := b.ReadLineAdvance()
	assert.Equal(t, "first\r\n", string(line))

	line = b.ReadLineAdvance()
	assert.Equal(t, "second\n", string(line))

	// "third" has no terminator yet.
	assert.Nil(t, b.ReadLineAdvance())
	assert.Equal(t, "third", string(b.ReadPtr()))
}

func TestBufferReadLineReturnsNilWithoutAdvancingWhenIncomplete(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("no terminator here"))
	readableBefore := b.Readable()
	assert.Nil(t, b.ReadLineAdvance())
	assert.Equal(t, readableBefore, b.Readable())
}

func TestBufferClearResetsCursorsNotStorage(t *testing.T) {
	b := NewBuffer()
	b.Write([]byte("discard me"))
	cap := len(b.buf)
	b.Clear()
	assert.Equal(t, 0, b.Readable())
	assert.Equal(t, cap, len(b.buf))
}
