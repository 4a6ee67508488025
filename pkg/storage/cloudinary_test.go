package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPublicID(t *testing.T) {
	tests := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1712/cluverse/posters/123-hack.webp": "cluverse/posters/123-hack",
		"https://res.cloudinary.com/demo/image/upload/cluverse/avatars/me.png":               "cluverse/avatars/me",
		"https://res.cloudinary.com/demo/image/upload/videos/v2.webp":                        "videos/v2",
		"https://example.com/no-upload-segment.png":                                          "",
		"https://res.cloudinary.com/demo/image/upload/":                                      "",
	}

	for in, want := range tests {
		assert.Equal(t, want, extractPublicID(in), in)
	}
}

func TestNewCloudinaryStorageWithoutURL(t *testing.T) {
	s, err := NewCloudinaryStorage("", "", "cluverse")
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
