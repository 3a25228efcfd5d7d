package storage

import "strings"

const DefaultExtension = "mp4"

var contentTypes = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
}

// NormalizeExtension lower-cases ext and drops a leading dot. An empty value
// selects DefaultExtension. ok is false for unsupported extensions.
func NormalizeExtension(ext string) (normalized string, ok bool) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	if _, ok := contentTypes[ext]; !ok {
		return "", false
	}
	return ext, true
}

// ContentTypeFor maps a normalized extension to its MIME type.
func ContentTypeFor(ext string) string {
	return contentTypes[ext]
}
