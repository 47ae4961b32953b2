package player

import (
	"math/rand/v2"

	"github.com/kenfehling/drum-circle-api/internal/models"
)

// NextColor picks the color for the next joiner. Colors cycle in palette
// order by join position, wrapping around once the palette is exhausted;
// the wraparound is deliberate, not an error.
func NextColor(usedColors []models.Color) models.Color {
	return models.ColorAt(len(usedColors))
}

// SelectDrum picks a drum uniformly at random from the kit drums not yet
// used in the game. Once every drum is taken the whole kit becomes the
// candidate pool again, so repeats appear only on exhaustion.
func SelectDrum(usedDrums []string, kitDrums []string) string {
	used := make(map[string]bool, len(usedDrums))
	for _, d := range usedDrums {
		used[d] = true
	}

	var pool []string
	for _, d := range kitDrums {
		if !used[d] {
			pool = append(pool, d)
		}
	}
	if len(pool) == 0 {
		pool = kitDrums
	}

	return pool[rand.IntN(len(pool))]
}
