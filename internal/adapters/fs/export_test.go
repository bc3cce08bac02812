package fs

import "time"

// SetClock replaces the clock used by Touch.
func SetClock(f *FileSystem, now func() time.Time) {
	f.now = now
}

// MatchSegments exports matchSegments for testing.
var MatchSegments = matchSegments
