package asset

import "errors"

// Errors reported while loading scene assets. Callers wrap these with
// additional context and match them with errors.Is.
var (
	// The scene document could not be read or parsed. Loading cannot proceed.
	ErrFatalIO = errors.New("fatal I/O error")

	// A required field is missing or a type tag is not recognized.
	ErrMalformedScene = errors.New("malformed scene")

	// An asset uses an encoding that is not supported (index width, texture
	// channel count). The affected primitive or texture is skipped.
	ErrUnsupportedAssetFormat = errors.New("unsupported asset format")

	// An object or mesh asset could not be loaded; the rest of the scene is
	// still usable.
	ErrPartialLoad = errors.New("partial load")
)
