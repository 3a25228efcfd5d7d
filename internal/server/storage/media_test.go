package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "mp4", true},
		{"mp4", "mp4", true},
		{".MP4", "mp4", true},
		{"WebM", "webm", true},
		{" .webm ", "webm", true},
		{"mov", "", false},
		{"exe", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeExtension(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentTypeFor("mp4"))
	assert.Equal(t, "video/webm", ContentTypeFor("webm"))
	assert.Empty(t, ContentTypeFor("avi"))
}
