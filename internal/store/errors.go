package store

import "errors"

var (
	// ErrNotFound is returned when the requested file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrTooLarge is returned by Preview for files over MaxPreviewSize.
	ErrTooLarge = errors.New("file too large to preview")

	// ErrUnsupportedEncoding is returned by Preview when no decoder accepts the content.
	ErrUnsupportedEncoding = errors.New("unsupported file encoding")

	// ErrInvalidName is returned for names that are empty or would resolve
	// outside the store root.
	ErrInvalidName = errors.New("invalid file name")
)
