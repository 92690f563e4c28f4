// Package location maps a room code to the backend collection that stores
// its items.
package location

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const collectionPrefix = "pension_list_"

// MaxCodeBytes bounds the sanitized room code. Longer codes keep a prefix and
// gain a hash suffix so distinct codes stay distinct.
const MaxCodeBytes = 120

const hashSuffixLen = 12

var separators = strings.NewReplacer("/", "_", "\\", "_")

// Resolver derives collection locations. Namespace is empty for standalone
// deployments; embedded deployments nest every room under it.
type Resolver struct {
	Namespace string
}

// Sanitize trims the room code, replaces path separators, breaks up ".."
// runs and bounds the length to MaxCodeBytes.
func Sanitize(roomCode string) string {
	code := separators.Replace(strings.TrimSpace(roomCode))
	// "..." becomes "._." and "...." becomes "._._", so no ".." survives.
	code = strings.ReplaceAll(code, "..", "._")
	if len(code) <= MaxCodeBytes {
		return code
	}
	sum := sha256.Sum256([]byte(code))
	suffix := "-" + hex.EncodeToString(sum[:])[:hashSuffixLen]
	return truncateRunes(code, MaxCodeBytes-len(suffix)) + suffix
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Resolve returns the collection for roomCode, or "" when the code is blank.
// The result is a pure function of (Namespace, roomCode).
func (r Resolver) Resolve(roomCode string) string {
	code := Sanitize(roomCode)
	if code == "" {
		return ""
	}
	name := collectionPrefix + code
	ns := strings.Trim(strings.TrimSpace(r.Namespace), "/")
	if ns == "" {
		return name
	}
	return ns + "/" + name
}
