// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ik5/audstream/audio"
)

// MockSource is a test helper that generates 16-bit PCM for testing.
// It implements the audio.Source interface.
type MockSource struct {
	mu       sync.Mutex
	format   audio.Format
	cur      audio.Cursor
	waveform func(frame int, channel int) int16

	reads  int
	seeks  int
	closed bool
}

// NewMockSource creates a new mock PCM source of frames sample frames.
// waveform generates the sample value for a frame index and channel.
func NewMockSource(sampleRate, channels, frames int, waveform func(frame int, channel int) int16) *MockSource {
	f := audio.NewFormat(sampleRate, channels, 2, frames*channels*2)
	return &MockSource{
		format:   f,
		cur:      audio.NewCursor(f.TotalBytes, f.BlockAlign),
		waveform: waveform,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) int16 { return 0 })
}

// NewRampSource creates a mock source whose samples carry their frame index,
// so a test can tell which stream offset a buffer was decoded from.
func NewRampSource(sampleRate, channels, frames int) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame int, _ int) int16 {
		return int16(frame % 32768)
	})
}

// FrameAt decodes the frame index a ramp source wrote at byte offset off of pcm.
func FrameAt(pcm []byte, off int) int {
	return int(int16(binary.LittleEndian.Uint16(pcm[off:])))
}

func (m *MockSource) Format() audio.Format {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.format
}

func (m *MockSource) ReadSome(dst []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.closed {
		return 0, os.ErrClosed
	}
	if m.cur.Remaining() == 0 {
		return 0, io.EOF
	}

	n := m.cur.Span(len(dst))
	if n == 0 {
		return 0, audio.ErrShortBuffer
	}

	align := m.format.BlockAlign
	first := m.cur.Position() / align
	for i := range n / align {
		for ch := range m.format.Channels {
			off := i*align + ch*2
			binary.LittleEndian.PutUint16(dst[off:], uint16(m.waveform(first+i, ch)))
		}
	}

	return m.cur.Advance(n), nil
}

func (m *MockSource) Seek(pos int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seeks++
	target := m.cur.Target(pos)
	m.cur.Set(target)
	return target, nil
}

func (m *MockSource) Position() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cur.Position()
}

func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Reads returns how many times ReadSome was called.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reads
}

// Seeks returns how many times Seek was called.
func (m *MockSource) Seeks() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.seeks
}

func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// Opener serves MockSources by path instead of touching the filesystem.
type Opener struct {
	mu      sync.Mutex
	sources map[string]func() audio.Source
	opened  []audio.Source
}

func NewOpener() *Opener {
	return &Opener{sources: make(map[string]func() audio.Source)}
}

// Add registers a constructor for path; every Open gets a fresh Source.
func (o *Opener) Add(path string, fn func() audio.Source) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sources[path] = fn
}

func (o *Opener) Open(path string) (audio.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fn, ok := o.sources[path]
	if !ok {
		return nil, &audio.DecodeError{Path: path, Err: fmt.Errorf("%w", os.ErrNotExist)}
	}

	src := fn()
	o.opened = append(o.opened, src)
	return src, nil
}

// Opened returns every Source handed out so far.
func (o *Opener) Opened() []audio.Source {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]audio.Source(nil), o.opened...)
}
