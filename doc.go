// SPDX-License-Identifier: EPL-2.0

// Package audstream plays audio files with double-buffered streaming.
//
// Files are decoded to interleaved PCM by the format packages and played by
// listeners through voices. Short sounds are decoded at once into a
// sound.StaticSound. Long ones are opened as a sound.StreamingSound, which
// keeps one block (a second of audio by default) playing and the next one
// queued, and decodes the following block each time a voice finishes one.
// Several listeners can play one stream at independent positions.
//
// # Supported Formats
//
// The DefaultRegistry detects formats by extension first and by file header
// second:
//   - WAV (PCM 16-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 8 to 32-bit) via formats/aiff
//   - FLAC via formats/flac
//
// # Quick Start
//
//	eng, err := audstream.NewDefault(zerolog.Nop())
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//
//	music, err := eng.LoadStream("music.ogg", true)
//	if err != nil {
//		return err
//	}
//
//	l, _ := eng.NewListener()
//	if err := l.PlaySound(music, true); err != nil {
//		return err
//	}
//
// # Configuration
//
// NewDefault reads AUDSTREAM_* variables, optionally from a .env file; see
// the config package. New takes an explicit config.Config and any
// sound.VoiceFactory, such as voice.NewHeadless for running without an
// audio device.
//
// # Writing WAV Files
//
// The wav package can write PCM WAV files, which is handy for fixtures:
//
//	samples := []int16{100, -100, 200, -200}
//	file, _ := os.Create("output.wav")
//	wav.WritePCM16(file, 8000, 2, samples)
//
// See the individual subpackages for more detailed documentation.
package audstream
