package generation

import (
	"strings"
	"time"
)

const filenamePrefix = "luma"

// Millisecond ISO-8601, the timestamp shape the provider uses on the wire.
const isoMillis = "2006-01-02T15:04:05.000Z"

var timestampSanitizer = strings.NewReplacer(":", "-", ".", "-")

// Filename derives the canonical output name for a generation:
// {prefix}_{id}_{created-at with ':' and '.' replaced by '-'}.mp4.
// The same rule names archive entries, suggested download filenames and
// link-list entries, so downstream tooling can rely on it.
func Filename(g Generation) string {
	ts := g.CreatedAt
	if parsed, err := time.Parse(time.RFC3339Nano, g.CreatedAt); err == nil {
		ts = parsed.UTC().Format(isoMillis)
	}
	return filenamePrefix + "_" + g.ID + "_" + timestampSanitizer.Replace(ts) + ".mp4"
}
