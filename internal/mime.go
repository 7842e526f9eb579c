package internal

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Media type constants.
const (
	MediaTypeOctetStream = "application/octet-stream"
	sniffBytes           = 512 // http.DetectContentType looks at no more than 512 bytes
)

// mediaTypeExtensions maps media types to preferred file extensions.
var mediaTypeExtensions = map[string]string{
	// Images
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
	"image/tiff":    ".tiff",
	"image/x-icon":  ".ico",
	"image/heic":    ".heic",
	"image/avif":    ".avif",
	// Documents
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel": ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
	"text/plain":      ".txt",
	"text/csv":        ".csv",
	"text/html":       ".html",
	"text/css":        ".css",
	"application/rtf": ".rtf",
	// Data
	"application/json":       ".json",
	"application/xml":        ".xml",
	"application/javascript": ".js",
	// Video
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	// Audio
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	"audio/flac": ".flac",
	// Archives
	"application/zip":  ".zip",
	"application/gzip": ".gz",
}

// extensionMediaTypes is the reverse of mediaTypeExtensions plus common aliases.
var extensionMediaTypes = func() map[string]string {
	m := make(map[string]string, len(mediaTypeExtensions)+4)
	for mt, ext := range mediaTypeExtensions {
		m[ext] = mt
	}
	m[".jpeg"] = "image/jpeg"
	m[".tif"] = "image/tiff"
	m[".htm"] = "text/html"
	m[".md"] = "text/markdown"
	return m
}()

// MediaTypeFromFilename guesses the media type from the filename extension.
// Returns an empty string when the extension is unknown.
func MediaTypeFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ""
	}
	if mt, ok := extensionMediaTypes[ext]; ok {
		return mt
	}
	return NormalizeMediaType(mime.TypeByExtension(ext))
}

// ExtFromMediaType returns the preferred extension for a media type.
// Returns an empty string if the media type is unknown.
func ExtFromMediaType(mediaType string) string {
	return mediaTypeExtensions[NormalizeMediaType(mediaType)]
}

// DetectMediaType sniffs the media type from the first bytes of r and seeks
// back to the start. Returns MediaTypeOctetStream for empty input.
func DetectMediaType(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	buf := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if n == 0 {
		return MediaTypeOctetStream, nil
	}
	return NormalizeMediaType(http.DetectContentType(buf[:n])), nil
}

// NormalizeMediaType strips parameters like charset and lowercases the type.
func NormalizeMediaType(mediaType string) string {
	mediaType, _, _ = strings.Cut(mediaType, ";")
	return strings.TrimSpace(strings.ToLower(mediaType))
}

// MatchMediaType reports whether mediaType matches any of the patterns.
// Supports wildcards like "image/*".
func MatchMediaType(mediaType string, patterns []string) bool {
	mediaType = NormalizeMediaType(mediaType)

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(strings.ToLower(pattern))

		if mediaType == pattern {
			return true
		}

		if prefix, ok := strings.CutSuffix(pattern, "*"); ok && strings.HasSuffix(prefix, "/") {
			if strings.HasPrefix(mediaType, prefix) {
				return true
			}
		}
	}

	return false
}
