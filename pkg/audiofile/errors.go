package audiofile

import "errors"

var (
	// ErrNotFound is returned when a path does not name an existing regular
	// file.
	ErrNotFound = errors.New("audiofile: not found")

	// ErrDurationMismatch is returned when a clip's duration, rounded to a
	// tenth of a second, differs from the expected duration.
	ErrDurationMismatch = errors.New("audiofile: duration mismatch")

	// ErrSampleRateMismatch is returned when a decoded clip is not at the
	// expected sample rate.
	ErrSampleRateMismatch = errors.New("audiofile: sample rate mismatch")

	// ErrLoad is returned when a file cannot be read or decoded.
	ErrLoad = errors.New("audiofile: load failed")

	// ErrSilentInput is returned when the spectrogram has zero variance and
	// cannot be normalised.
	ErrSilentInput = errors.New("audiofile: silent input")

	// ErrInvalidRange is returned by Crop for an empty or negative range.
	ErrInvalidRange = errors.New("audiofile: invalid range")
)
