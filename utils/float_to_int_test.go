// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm16(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func samples16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, math.MaxInt16},
		{-1, -math.MaxInt16},
		{0.5, 16383},
		{1.5, math.MaxInt16},
		{-100, -math.MaxInt16},
	}

	for _, tt := range tests {
		if got := Float32ToInt16(tt.in); got != tt.want {
			t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScaleToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v        int
		bitDepth int
		want     int16
	}{
		{"16-bit passthrough", -1234, 16, -1234},
		{"8-bit widened", 127, 8, 127 << 8},
		{"8-bit negative", -128, 8, math.MinInt16},
		{"12-bit widened", 0x7ff, 12, 0x7ff0},
		{"20-bit narrowed", 0x7ffff, 20, math.MaxInt16},
		{"24-bit narrowed", 0x7fffff, 24, math.MaxInt16},
		{"24-bit negative", -0x800000, 24, math.MinInt16},
		{"24-bit drops low bits", 0xff, 24, 0},
		{"32-bit narrowed", 1 << 30, 32, 1 << 14},
		{"unknown depth", 42, 0, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ScaleToInt16(tt.v, tt.bitDepth); got != tt.want {
				t.Errorf("ScaleToInt16(%d, %d) = %d, want %d", tt.v, tt.bitDepth, got, tt.want)
			}
		})
	}
}

func TestPutFloat32PCM16(t *testing.T) {
	t.Parallel()

	src := []float32{0, 1, -1, 0.5, 2}
	dst := make([]byte, len(src)*2+1)

	if n := PutFloat32PCM16(dst, src); n != 10 {
		t.Fatalf("PutFloat32PCM16() = %d, want 10", n)
	}

	want := []int16{0, math.MaxInt16, -math.MaxInt16, 16383, math.MaxInt16}
	got := samples16(dst[:10])
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
	if dst[10] != 0 {
		t.Errorf("byte past the samples was written: %#x", dst[10])
	}
}

func TestPutIntPCM16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      []int
		bitDepth int
		want     []int16
	}{
		{"8-bit", []int{1, -1, 127}, 8, []int16{1 << 8, -1 << 8, 127 << 8}},
		{"16-bit", []int{1, -1, 32767}, 16, []int16{1, -1, 32767}},
		{"24-bit", []int{0x100, -0x100, 0x7fff00}, 24, []int16{1, -1, 0x7fff}},
		{"32-bit", []int{1 << 16, -1 << 16}, 32, []int16{1, -1}},
		{"empty", nil, 16, []int16{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dst := make([]byte, len(tt.src)*2)
			if n := PutIntPCM16(dst, tt.src, tt.bitDepth); n != len(tt.src)*2 {
				t.Fatalf("PutIntPCM16() = %d, want %d", n, len(tt.src)*2)
			}

			got := samples16(dst)
			for i, w := range tt.want {
				if got[i] != w {
					t.Errorf("sample %d = %d, want %d", i, got[i], w)
				}
			}
		})
	}
}

func TestApplyGainPCM16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []int16
		gain float64
		want []int16
	}{
		{"unity", []int16{100, -100, 32767}, 1, []int16{100, -100, 32767}},
		{"half", []int16{100, -100, 32767, -32768}, 0.5, []int16{50, -50, 16383, -16384}},
		{"mute", []int16{100, -100, 32767}, 0, []int16{0, 0, 0}},
		{"negative mutes", []int16{100}, -1, []int16{0}},
		{"boost clamps", []int16{20000, -20000, 10}, 2, []int16{32767, -32768, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := pcm16(tt.in...)
			ApplyGainPCM16(p, tt.gain)

			got := samples16(p)
			for i, w := range tt.want {
				if got[i] != w {
					t.Errorf("sample %d = %d, want %d", i, got[i], w)
				}
			}
		})
	}
}

func TestApplyGainPCM16OddLength(t *testing.T) {
	t.Parallel()

	p := append(pcm16(1000), 0x7f)
	ApplyGainPCM16(p, 0)

	if got := samples16(p[:2])[0]; got != 0 {
		t.Errorf("sample = %d, want 0", got)
	}
	if p[2] != 0x7f {
		t.Errorf("trailing byte = %#x, want 0x7f", p[2])
	}
}

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		y0, y1, y2, y3 float32
		x              float32
		want           float32
	}{
		{"start returns y1", 0, 0.25, 0.5, 0.75, 0, 0.25},
		{"end returns y2", 0, 0.25, 0.5, 0.75, 1, 0.5},
		{"linear midpoint", 0, 0.25, 0.5, 0.75, 0.5, 0.375},
		{"constant", 0.3, 0.3, 0.3, 0.3, 0.7, 0.3},
	}

	for _, tt := range tests {
		got := CubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x)
		if math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("%s: CubicInterpolate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func BenchmarkApplyGainPCM16(b *testing.B) {
	// one second of stereo at 44.1kHz
	p := make([]byte, 44100*4)

	b.ReportAllocs()
	for range b.N {
		ApplyGainPCM16(p, 0.5)
	}
}
