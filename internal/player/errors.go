package player

import "errors"

// ErrGameFull is returned when a non-open game is at capacity.
var ErrGameFull = errors.New("game is full")
