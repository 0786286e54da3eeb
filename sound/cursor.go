// SPDX-License-Identifier: EPL-2.0

package sound

import "github.com/google/uuid"

// PlaybackCursor is one listener's position in a StreamingSound: the byte
// range its queued buffers cover and the front/back pair in flight.
//
// base is the stream offset of front, next the offset right after the last
// queued byte. base <= next <= total always holds.
type PlaybackCursor struct {
	listener uuid.UUID
	voice    Voice

	base  int
	next  int
	front *Buffer
	back  *Buffer
	busy  bool
}

func newPlaybackCursor(ep Endpoint) *PlaybackCursor {
	return &PlaybackCursor{listener: ep.ID, voice: ep.Voice}
}

// held is the number of buffers the cursor has handed to its voice.
func (c *PlaybackCursor) held() int {
	n := 0
	if c.front != nil {
		n++
	}
	if c.back != nil {
		n++
	}
	return n
}

// CursorState is a snapshot of a PlaybackCursor.
type CursorState struct {
	Base  int
	Next  int
	Front *Buffer
	Back  *Buffer
	Busy  bool
}

func (c *PlaybackCursor) state() CursorState {
	return CursorState{Base: c.base, Next: c.next, Front: c.front, Back: c.back, Busy: c.busy}
}
