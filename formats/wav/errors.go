// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	// ErrNotWavFile is returned when a decoded file's header is not a
	// RIFF/WAVE container.
	ErrNotWavFile = errors.New("formats/wav: not a WAV file")
	// ErrUnsupportedBitDepth is returned when a file's "fmt " chunk names
	// a PCM/float width this package does not implement.
	ErrUnsupportedBitDepth = errors.New("formats/wav: unsupported bit depth")
)
