package utils

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SuggestedFilename derives a filesystem-safe download name from a resolved
// location and a display date: the location lowercased with every
// non-alphanumeric byte replaced by an underscore, then the date with its
// slashes dashed.
func SuggestedFilename(location, date string) string {
	name := strings.ToLower(unsafeFilenameChars.ReplaceAllString(location, "_"))
	return name + "_" + strings.ReplaceAll(date, "/", "-") + ".jpg"
}
