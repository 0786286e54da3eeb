// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"sync"
	"time"
)

// Format describes interleaved PCM as produced by a Source.
type Format struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
	// BlockAlign is BytesPerSample * Channels, the size of one frame in bytes.
	BlockAlign int
	// TotalBytes is the decoded stream length in PCM bytes.
	TotalBytes int
}

// NewFormat builds a Format and derives BlockAlign. totalBytes is aligned down
// to a whole number of frames.
func NewFormat(sampleRate, channels, bytesPerSample, totalBytes int) Format {
	align := channels * bytesPerSample
	if align > 0 {
		totalBytes -= totalBytes % align
	}

	return Format{
		SampleRate:     sampleRate,
		Channels:       channels,
		BytesPerSample: bytesPerSample,
		BlockAlign:     align,
		TotalBytes:     totalBytes,
	}
}

func (f Format) BitDepth() int       { return f.BytesPerSample * 8 }
func (f Format) BytesPerSecond() int { return f.SampleRate * f.BlockAlign }

// Valid reports whether the format can describe playable PCM.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.BytesPerSample > 0 &&
		f.BlockAlign == f.Channels*f.BytesPerSample && f.TotalBytes >= 0
}

// Frames returns the stream length in sample frames.
func (f Format) Frames() int {
	if f.BlockAlign == 0 {
		return 0
	}
	return f.TotalBytes / f.BlockAlign
}

// BlockBytes returns the byte size of d worth of audio, aligned to whole
// frames and never smaller than one frame.
func (f Format) BlockBytes(d time.Duration) int {
	if f.BlockAlign == 0 {
		return 0
	}

	n := int(int64(f.BytesPerSecond()) * int64(d) / int64(time.Second))
	n -= n % f.BlockAlign
	if n < f.BlockAlign {
		n = f.BlockAlign
	}
	return n
}

// Hash is a cheap equality proxy for (sample rate, channels, bit depth).
// Stream length does not take part in it.
func (f Format) Hash() uint32 {
	return uint32(f.SampleRate)<<12 | uint32(f.Channels&0x3f)<<6 | uint32(f.BitDepth()&0x3f)
}

// Source is a sequential PCM byte producer over a single audio stream.
// Reads and seeks are always aligned to Format().BlockAlign.
type Source interface {
	Format() Format
	// ReadSome fills dst with up to len(dst) bytes of PCM, never splitting a
	// frame. Once the stream is exhausted it returns 0, io.EOF.
	ReadSome(dst []byte) (int, error)
	// Seek moves to the byte offset pos, aligned down to a frame. Offsets
	// outside [0, TotalBytes) reset the stream to 0. It returns the actual
	// position.
	Seek(pos int) (int, error)
	// Position is the current byte offset in [0, TotalBytes].
	Position() int
	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from a seekable input. The Source takes
// ownership of rs and closes it when rs implements io.Closer.
type Decoder interface {
	Decode(rs io.ReadSeeker) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg vorbis").
type Registry struct {
	codecs     map[string]Decoder
	extensions map[string]string

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs:     make(map[string]Decoder),
		extensions: make(map[string]string),
		mtx:        &sync.Mutex{},
	}
}

// Register adds d under format and maps every extension in exts to it.
// Extensions are matched case-insensitively and may omit the leading dot.
func (r *Registry) Register(format string, d Decoder, exts ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
	for _, ext := range exts {
		r.extensions[normalizeExt(ext)] = format
	}
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// Formats returns the registered format keys.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	keys := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		keys = append(keys, k)
	}
	return keys
}

func (r *Registry) formatForExt(ext string) (string, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	f, ok := r.extensions[normalizeExt(ext)]
	return f, ok
}
