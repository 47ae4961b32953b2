package game

import "errors"

var (
	// ErrNotFound is returned when no game exists with the given code.
	ErrNotFound = errors.New("game not found")

	// ErrTempoRequired is returned by StartGame when no tempo was set.
	ErrTempoRequired = errors.New("tempo must be set before starting")

	// ErrGameRunning is returned when settings are patched after start.
	ErrGameRunning = errors.New("game already running, settings are frozen")

	// ErrAlreadyRunning is returned by StartGame in strict mode when the
	// game was already started. The default mode treats a second start as
	// an idempotent no-op instead.
	ErrAlreadyRunning = errors.New("game already running")

	// ErrUnknownDrumKit is returned when a settings patch names a kit
	// that is not in the registry.
	ErrUnknownDrumKit = errors.New("unknown drum kit")

	// ErrInvalidTempo is returned for a tempo of zero or less, or one so
	// fast its beat duration rounds down to zero milliseconds.
	ErrInvalidTempo = errors.New("tempo out of range")

	// ErrInvalidColor is returned when an effect names a color outside
	// the palette.
	ErrInvalidColor = errors.New("invalid color")
)
