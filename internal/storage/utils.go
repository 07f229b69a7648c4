package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// hashPrefixLen is how many hex characters of the content hash go into the
// stored name, enough to make names self-describing without getting unwieldy
const hashPrefixLen = 12

// DeriveStoredName builds the storage key for an accepted upload from the
// acceptance time, the content hash and the original file extension:
// 20250101_120000_9f86d081884c.png
func DeriveStoredName(acceptedAt time.Time, contentHash, extension string) string {
	prefix := contentHash
	if len(prefix) > hashPrefixLen {
		prefix = prefix[:hashPrefixLen]
	}
	if extension != "" && extension[0] != '.' {
		extension = "." + extension
	}
	return fmt.Sprintf("%s_%s%s", acceptedAt.UTC().Format("20060102_150405"), prefix, strings.ToLower(extension))
}

// ResaltStoredName derives a fresh storage key from a colliding one by
// inserting a random fragment before the extension
func ResaltStoredName(storedName string) string {
	ext := ""
	base := storedName
	if i := strings.LastIndex(storedName, "."); i >= 0 {
		base = storedName[:i]
		ext = storedName[i:]
	}
	salt := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s%s", base, salt, ext)
}

// ThumbnailKey returns the storage key of the thumbnail derived from the
// given stored name
func ThumbnailKey(storedName string) string {
	return ThumbnailPrefix + storedName
}
