package utils

import (
	"regexp"
	"strings"
)

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskUID keeps the first and last four characters of a record UID for log correlation.
func MaskUID(uid string) string {
	if len(uid) <= 8 {
		return strings.Repeat("*", len(uid))
	}
	return uid[:4] + strings.Repeat("*", len(uid)-8) + uid[len(uid)-4:]
}
