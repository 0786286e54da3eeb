// SPDX-License-Identifier: EPL-2.0

package flac

import "github.com/ik5/audstream/audio"

// audio16 is the 16-bit output format for frames sample frames at 44.1 kHz.
func audio16(channels, frames int) audio.Format {
	return audio.NewFormat(44100, channels, 2, frames*channels*2)
}
