// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding.
//
// Headers are parsed with github.com/go-audio/wav. The data chunk is then read
// directly, so the returned audio.Source hands out the file's PCM bytes
// unchanged and seeks by repositioning the underlying reader.
//
// # Supported Formats
//
// Currently supported:
//   - PCM 16-bit
//   - Any channel count
//   - Any sample rate
//
// # Decoding WAV Files
//
//	f, _ := os.Open("audio.wav")
//	source, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]byte, source.Format().BlockBytes(time.Second))
//	n, err := source.ReadSome(buf)
//
// A data chunk that is shorter than its header claims is truncated to what
// the file actually holds.
//
// # Writing WAV Files
//
// WriteWAV16 writes mono files, WritePCM16 any channel count:
//
//	samples := []int16{100, -100, 200, -200}
//	file, _ := os.Create("output.wav")
//	err := wav.WritePCM16(file, 8000, 2, samples)
//
// # Error Handling
//
//   - ErrNotWavFile: the input is not a RIFF/WAVE file
//   - ErrOnlyPCM16bitSupported: the fmt chunk is not 16-bit integer PCM
//   - ErrUnsupportedWavLayout: the fmt chunk carries no channels or rate
//   - ErrUnsupportedWavChunks: no data chunk was found
package wav
