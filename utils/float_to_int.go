// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// ScaleToInt16 narrows or widens an integer sample of bitDepth bits to 16 bits.
func ScaleToInt16(v int, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	case bitDepth < 16 && bitDepth > 0:
		return int16(v << (16 - bitDepth))
	}
	return int16(v)
}

// PutFloat32PCM16 packs src into dst as 16-bit little-endian PCM and returns
// the number of bytes written. dst must hold len(src)*2 bytes.
func PutFloat32PCM16(dst []byte, src []float32) int {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(Float32ToInt16(s)))
	}
	return len(src) * 2
}

// PutIntPCM16 packs integer samples of bitDepth bits into dst as 16-bit
// little-endian PCM and returns the number of bytes written.
func PutIntPCM16(dst []byte, src []int, bitDepth int) int {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(ScaleToInt16(s, bitDepth)))
	}
	return len(src) * 2
}

// ApplyGainPCM16 scales the 16-bit little-endian samples in p in place,
// clamping to the int16 range. A trailing odd byte is left untouched.
func ApplyGainPCM16(p []byte, gain float64) {
	if gain == 1 {
		return
	}
	if gain <= 0 {
		clear(p[:len(p)-len(p)%2])
		return
	}

	for i := 0; i+1 < len(p); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(p[i:]))) * gain
		v = min(max(v, -32768), 32767)
		binary.LittleEndian.PutUint16(p[i:], uint16(int16(v)))
	}
}
