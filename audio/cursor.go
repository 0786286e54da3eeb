// SPDX-License-Identifier: EPL-2.0

package audio

// Cursor tracks the byte position inside a PCM stream and keeps every read
// and seek aligned to whole frames. Format decoders embed it.
type Cursor struct {
	pos   int
	total int
	align int
}

func NewCursor(total, align int) Cursor {
	if align < 1 {
		align = 1
	}
	return Cursor{total: total - total%align, align: align}
}

func (c *Cursor) Position() int  { return c.pos }
func (c *Cursor) Total() int     { return c.total }
func (c *Cursor) Remaining() int { return c.total - c.pos }

// Span returns how many bytes of a read of n bytes may be served: capped by
// the remaining stream and aligned down to a frame.
func (c *Cursor) Span(n int) int {
	if r := c.Remaining(); n > r {
		n = r
	}
	return n - n%c.align
}

// Advance moves the cursor forward by n bytes, dropping any partial frame.
func (c *Cursor) Advance(n int) int {
	n -= n % c.align
	c.pos += n
	if c.pos > c.total {
		c.pos = c.total
	}
	return n
}

// Target maps a requested seek offset to the aligned offset the stream will
// actually move to. Out of range offsets map to 0.
func (c *Cursor) Target(pos int) int {
	if pos < 0 || pos >= c.total {
		return 0
	}
	return pos - pos%c.align
}

func (c *Cursor) Set(pos int) { c.pos = pos }

// Truncate shortens the stream to the current position. Decoders call it when
// the input ends before the advertised length.
func (c *Cursor) Truncate() { c.total = c.pos }
