// SPDX-License-Identifier: EPL-2.0

// Package voice provides sound.Voice implementations.
//
// Queue is a pure Go voice that plays whatever is read from it, scaled by its
// volume. Device wraps Queues in oto players for the system audio output; all
// of its voices share one oto context, which is suspended when the last voice
// closes. The context runs at the Device's format and voices for other rates
// or channel counts are converted with audio.NewConverter.
package voice
