package util

import (
	"regexp"
	"unicode"
)

const maxIdentifierLength = 128

var publicIDRegex = regexp.MustCompile(`^[0-9]{6}-[0-9]{3}$`)

// IsValidIdentifier accepts the opaque organization and user keys handed to
// us by the chat platform.
func IsValidIdentifier(s string) bool {
	if s == "" || len(s) > maxIdentifierLength {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func IsValidPublicID(s string) bool {
	return publicIDRegex.MatchString(s)
}
