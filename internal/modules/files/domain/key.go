package domain

import (
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxNameBytes bounds a sanitized filename so object keys stay well under
// backend key limits.
const MaxNameBytes = 255

// maxExtBytes is the longest suffix still treated as an extension when
// truncating.
const maxExtBytes = 16

// SanitizeName keeps the last path element of a client supplied filename,
// replaces characters that are unsafe in object keys and truncates it to
// MaxNameBytes, keeping the extension.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`/:*?"<>|`, r) {
			return '_'
		}
		return r
	}, name)

	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return truncateName(name)
}

func truncateName(name string) string {
	if len(name) <= MaxNameBytes {
		return name
	}
	ext := path.Ext(name)
	if len(ext) > maxExtBytes || !utf8.ValidString(ext) {
		ext = ""
	}
	stem := name[:MaxNameBytes-len(ext)]
	for len(stem) > 0 && !utf8.ValidString(stem) {
		stem = stem[:len(stem)-1]
	}
	return stem + ext
}

// RecordName is the stored display name, "<epoch-ms>-<name>".
func RecordName(at time.Time, original string) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + SanitizeName(original)
}

// ObjectKey is the object store key for a user's record name, "<user_id>/<name>".
func ObjectKey(userID uuid.UUID, name string) string {
	return userID.String() + "/" + name
}

// SplitObjectKey is the inverse of ObjectKey.
func SplitObjectKey(key string) (uuid.UUID, string, bool) {
	prefix, name, ok := strings.Cut(key, "/")
	if !ok || name == "" {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(prefix)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, name, true
}
