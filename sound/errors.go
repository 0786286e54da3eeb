// SPDX-License-Identifier: EPL-2.0

package sound

import "errors"

var (
	ErrAlreadyLoaded = errors.New("sound is already loaded")
	ErrNotLoaded     = errors.New("sound is not loaded")
	// ErrStillReferenced is returned by Unload while listeners are bound.
	ErrStillReferenced = errors.New("sound is still referenced by bound listeners")
	ErrNotBound        = errors.New("listener is not bound to this sound")
	ErrDoubleBind      = errors.New("listener is already bound to this sound")
	ErrNoVoice         = errors.New("listener has no voice")
	ErrNoOpener        = errors.New("no source opener configured")
	ErrEmptyStream     = errors.New("stream holds no audio")
	ErrNoSound         = errors.New("listener has no sound")
)
