package storage

import (
	"regexp"
	"strings"
)

// objectPathPrefix is the virtual namespace all stored objects are addressed
// under. The path grammar below is a durable external contract: stored URLs
// and client UIs depend on it.
const objectPathPrefix = "/objects/"

// Shape: /objects/<category>/<one or more segments>. The character class
// also rejects anything outside [A-Za-z0-9_./-].
var objectPathPattern = regexp.MustCompile(`^/objects/[A-Za-z0-9_.-]+/[A-Za-z0-9_./-]+$`)

// IsValidObjectPath reports whether path is a well-formed virtual object
// path. Every rule is checked independently; any one violation rejects.
// Syntactic acceptance here is not sufficient on its own: the local backend
// re-checks that the resolved file lies under its root at resolution time.
func IsValidObjectPath(path string) bool {
	if !strings.HasPrefix(path, objectPathPrefix) {
		return false
	}
	if strings.Contains(path, "..") {
		return false
	}
	if strings.ContainsRune(path, '\x00') {
		return false
	}
	if !objectPathPattern.MatchString(path) {
		return false
	}
	for _, segment := range strings.Split(strings.TrimPrefix(path, objectPathPrefix), "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

// ObjectKeyFromPath maps a validated virtual path to its backend key by
// stripping the /objects/ prefix. Keys keep the category segment so upload
// and retrieval agree on one layout.
func ObjectKeyFromPath(path string) string {
	return strings.TrimPrefix(path, objectPathPrefix)
}

// ObjectPathFromKey is the inverse of ObjectKeyFromPath.
func ObjectPathFromKey(key string) string {
	return objectPathPrefix + key
}
