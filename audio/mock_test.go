package audio

import (
	"encoding/binary"
	"io"
)

// mockSource is a test helper that generates 16-bit PCM for testing.
// It implements the Source interface.
type mockSource struct {
	format Format
	cur    Cursor
	closed bool
}

// newMockSource creates a new mock source holding frames sample frames whose
// values are the frame index.
func newMockSource(sampleRate, channels, frames int) *mockSource {
	f := NewFormat(sampleRate, channels, 2, frames*channels*2)
	return &mockSource{format: f, cur: NewCursor(f.TotalBytes, f.BlockAlign)}
}

func (m *mockSource) Format() Format { return m.format }
func (m *mockSource) Position() int  { return m.cur.Position() }
func (m *mockSource) Close() error   { m.closed = true; return nil }

func (m *mockSource) ReadSome(dst []byte) (int, error) {
	if m.cur.Remaining() == 0 {
		return 0, io.EOF
	}

	n := m.cur.Span(len(dst))
	if n == 0 {
		return 0, ErrShortBuffer
	}

	first := m.cur.Position() / m.format.BlockAlign
	for i := range n / 2 {
		frame := first + i/m.format.Channels
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(frame))
	}

	return m.cur.Advance(n), nil
}

func (m *mockSource) Seek(pos int) (int, error) {
	t := m.cur.Target(pos)
	m.cur.Set(t)
	return t, nil
}
