package utils

// TimechunkMillis is the width of a counter bucket: 30 minutes.
const TimechunkMillis int64 = 30 * 60 * 1000

// RoundToTimechunk rounds a millisecond epoch timestamp down to the start of
// its 30-minute bucket.
func RoundToTimechunk(millis int64) int64 {
	return millis - (millis % TimechunkMillis)
}
