// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM primitives shared by decoders and the
// playback engine.
//
// This package contains:
//   - Format, describing interleaved PCM (rate, channels, sample size, length)
//   - Source, a sequential, seekable PCM byte producer
//   - Decoder, which turns a file into a Source
//   - Registry, which maps format keys and file extensions to decoders
//
// # Source Interface
//
// The Source interface is what every codec package produces:
//
//	type Source interface {
//	    Format() Format
//	    ReadSome(dst []byte) (int, error)
//	    Seek(pos int) (int, error)
//	    Position() int
//	    Close() error
//	}
//
// Reads never split a frame and seeks always land on a frame boundary, so
// every offset a Source reports is a multiple of Format().BlockAlign. Seeking
// outside the stream resets it to the start.
//
// # Format Registry
//
// The registry resolves a file to a decoder by extension first and falls back
// to sniffing the first SniffSize bytes:
//
//	registry := audio.NewRegistry()
//	registry.Register(audio.FormatWAV, wav.Decoder{}, ".wav")
//	src, err := registry.Open("music.wav")
//
// Open reports every failure as a *DecodeError, so callers can tell a missing
// file from an unsupported one with errors.Is:
//
//	if errors.Is(err, audio.ErrUnsupportedFormat) {
//	    // try another file
//	}
//
// # Reading
//
// Sources return io.EOF once the stream is exhausted:
//
//	buf := make([]byte, src.Format().BlockBytes(time.Second))
//	for {
//	    n, err := src.ReadSome(buf)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // use buf[:n]
//	}
package audio
