// Package timecode converts tracker timestamps into the numeric ids used to
// order telemetry entries.
package timecode

import (
	"strconv"
	"strings"
	"time"
)

// timestamps arrive as DD/MM/YYYY HH:mm:ss and are interpreted as UTC
const layout = "02/01/2006 15:04:05"

// ToID converts a timestamp string into its ordering id (unix seconds).
// Unparseable input yields 0; the entry is kept and just sorts first.
func ToID(timeStamp string) int64 {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(timeStamp), time.UTC)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// NewSampleKey returns the key for a new history entry: wall clock time in
// milliseconds since epoch, stringified.
func NewSampleKey(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// the hierarchical store forbids these characters in keys
var keySanitizer = strings.NewReplacer(
	".", "_",
	"$", "_",
	"#", "_",
	"[", "_",
	"]", "_",
	"/", "_",
)

// SanitizeKey replaces characters not allowed in hierarchical store keys.
func SanitizeKey(key string) string {
	return keySanitizer.Replace(key)
}
