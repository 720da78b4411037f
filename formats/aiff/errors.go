// SPDX-License-Identifier: EPL-2.0

package aiff

import "errors"

var (
	// ErrNotAiffFile indicates the file is not a valid AIFF file.
	ErrNotAiffFile = errors.New("not an AIFF file")

	// ErrUnsupportedAiffLayout indicates the file's chunk layout could not
	// be resolved to a sample format.
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")

	// ErrUnsupportedBitDepth indicates a PCM bit depth other than
	// 8, 16, 24, or 32 bits per sample.
	ErrUnsupportedBitDepth = errors.New("unsupported AIFF bit depth")
)
