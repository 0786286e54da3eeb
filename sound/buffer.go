// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ik5/audstream/audio"
)

var bufferIDs atomic.Uint64

// Buffer is a chunk of PCM handed to a Voice. Its contents do not change
// while it is queued.
type Buffer struct {
	id     uint64
	data   []byte
	format audio.Format
	owner  uuid.UUID
	base   int
	eos    bool

	// shared marks the first-block buffer a StreamingSound keeps for its
	// whole lifetime.
	shared   bool
	released bool
}

func newBuffer(data []byte, format audio.Format, owner uuid.UUID) *Buffer {
	return &Buffer{
		id:     bufferIDs.Add(1),
		data:   data,
		format: format,
		owner:  owner,
	}
}

func (b *Buffer) ID() uint64           { return b.id }
func (b *Buffer) Data() []byte         { return b.data }
func (b *Buffer) Len() int             { return len(b.data) }
func (b *Buffer) Format() audio.Format { return b.format }
func (b *Buffer) FormatHash() uint32   { return b.format.Hash() }
func (b *Buffer) Owner() uuid.UUID     { return b.owner }
func (b *Buffer) IsEndOfStream() bool  { return b.eos }
func (b *Buffer) IsShared() bool       { return b.shared }
func (b *Buffer) IsReleased() bool     { return b.released }

// Base is the stream byte offset of the first byte in the buffer.
func (b *Buffer) Base() int { return b.base }

// end is the stream byte offset right after the buffer.
func (b *Buffer) end() int { return b.base + len(b.data) }

// view returns a buffer over b's data starting off bytes in. The view shares
// b's memory and must never be released on its own.
func (b *Buffer) view(off int, owner uuid.UUID) *Buffer {
	v := newBuffer(b.data[off:], b.format, owner)
	v.base = b.base + off
	v.eos = b.eos
	v.shared = true
	return v
}

// blockPool recycles the backing arrays of transient stream buffers. All
// arrays in one pool have the same capacity.
type blockPool struct {
	size int
	pool sync.Pool
}

func newBlockPool(size int) *blockPool {
	p := &blockPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *blockPool) get() []byte {
	b := p.pool.Get().(*[]byte)
	return (*b)[:p.size]
}

func (p *blockPool) put(b []byte) {
	if cap(b) != p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}
