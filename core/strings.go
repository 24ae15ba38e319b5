package core

import (
	"regexp"
	"strings"
	"time"
)

var unsafeHostnameChars = regexp.MustCompile(`[^A-Za-z0-9.-]`)

// SanitizeHostname replaces every character outside [A-Za-z0-9.-] with “-”,
// so a hostname can be used as part of a file name on any platform.
func SanitizeHostname(hostname string) string {
	return unsafeHostnameChars.ReplaceAllString(hostname, "-")
}

// FileTimestamp formats t as an ISO-8601 UTC timestamp with millisecond precision, with
// colons & dots replaced by dashes, e.g. “2026-10-19T04-05-06-789Z”.
func FileTimestamp(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}
