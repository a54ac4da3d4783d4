// Package bytefmt renders byte counts as human-readable strings.
//
// Every size string the service emits goes through Format so that the
// provider listing, archive manifests and upload reports all agree on
// the representation.
package bytefmt

import (
	"math"
	"strconv"
)

var units = []string{"Bytes", "KB", "MB", "GB", "TB"}

// Format converts a byte count to a base-1024 unit string with up to two
// decimal places, trailing zeros trimmed. Zero maps to "0 Bytes".
func Format(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	exp := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if exp >= len(units) {
		exp = len(units) - 1
	}

	value := float64(n) / math.Pow(1024, float64(exp))
	rounded := math.Round(value*100) / 100

	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + units[exp]
}
