package util

import (
	"net/http"
	"strings"
)

// DetectMIME sniffs the content type from the first bytes of data.
func DetectMIME(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}

func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(normalizeMIME(mimeType), "image/")
}

// IsPictureMIME reports whether the type is an image format profile pictures can
// be decoded from.
func IsPictureMIME(mimeType string) bool {
	switch normalizeMIME(mimeType) {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp":
		return true
	default:
		return false
	}
}

func normalizeMIME(mimeType string) string {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(cleaned, ';'); i >= 0 {
		cleaned = strings.TrimSpace(cleaned[:i])
	}
	return cleaned
}
