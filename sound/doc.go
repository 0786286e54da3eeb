// SPDX-License-Identifier: EPL-2.0

// Package sound implements double-buffered playback of decoded audio.
//
// A StaticSound decodes a whole file into one Buffer. A StreamingSound keeps
// the opening block decoded and streams the rest one block at a time, with
// a front and a back buffer queued on every bound listener's Voice. Several
// listeners may play one StreamingSound at independent positions; each gets
// a PlaybackCursor and all of them share the sound's decoder under its lock.
//
// A Listener owns a Voice, binds to a Sound and runs the
// initial/playing/paused/stopped state machine. Voice completions are queued
// to the listener and trigger the next block of a stream. A Pump can top up
// streams on a timer for voices whose completions arrive late or not at all.
package sound
