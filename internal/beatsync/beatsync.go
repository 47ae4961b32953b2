// Package beatsync computes cycle-aligned start times for a repeating
// rhythm. Clients that share the same cycle duration and an accurate
// clock-skew estimate converge on the same absolute instant, because the
// result always lands on the epoch-aligned cycle grid.
package beatsync

const millisPerMinute = 60000

// BeatDuration returns the length of one beat in milliseconds for the
// given tempo, truncated to whole milliseconds. Tempo must be positive,
// and tempos past one beat per millisecond truncate to zero; callers
// validate the range before computing cycles.
func BeatDuration(tempo int) int64 {
	return millisPerMinute / int64(tempo)
}

// CycleDuration returns the length of one full cycle in milliseconds.
func CycleDuration(beatDuration, beatsPerMeasure, measuresInCycle int64) int64 {
	return beatDuration * beatsPerMeasure * measuresInCycle
}

// NextCycleTime returns the next cycle boundary strictly after the
// caller's now, in server-canonical milliseconds since epoch.
//
// clientTime is the caller's wall clock in ms; timeDifference is the
// signed correction that converts it to server time (zero when the
// caller is the server). If the corrected time sits exactly on a
// boundary, the result is still a full cycle ahead so the start is never
// in the past or simultaneous with the call.
func NextCycleTime(clientTime, timeDifference, beatDuration, beatsPerMeasure, measuresInCycle int64) int64 {
	serverTime := clientTime + timeDifference
	cycle := CycleDuration(beatDuration, beatsPerMeasure, measuresInCycle)
	elapsed := serverTime % cycle
	remaining := cycle - elapsed
	return serverTime + remaining
}
