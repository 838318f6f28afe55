package service

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cleanText trims user input and brings it to NFC so equal titles compare equal.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
