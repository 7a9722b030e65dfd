package course

import (
	"strings"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

// MaterialPolicy restricts material uploads.
var MaterialPolicy = core.UploadPolicy{
	MaxSize: 100 << 20,
	AllowedTypes: []string{
		"application/pdf",
		"video/mp4",
		"video/webm",
		"video/ogg",
		"image/jpeg",
		"image/png",
		"image/gif",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	},
}

// MaterialType derives the material type from a MIME type.
func MaterialType(mimeType string) string {
	switch {
	case mimeType == "application/pdf":
		return MaterialPDF
	case strings.HasPrefix(mimeType, "video/"):
		return MaterialVideo
	case strings.HasPrefix(mimeType, "image/"):
		return MaterialImage
	case strings.Contains(mimeType, "document"),
		strings.Contains(mimeType, "presentation"),
		strings.Contains(mimeType, "msword"),
		strings.Contains(mimeType, "powerpoint"):
		return MaterialDocument
	default:
		return MaterialOther
	}
}
