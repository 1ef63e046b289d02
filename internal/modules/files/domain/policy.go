package domain

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxImagePixels caps width*height of an image upload. Decoding allocates
// from the header's dimensions, not the payload size.
const MaxImagePixels = 24_000_000

// imageFormats maps a declared image type to the decoder name that must match it.
var imageFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// UploadPolicy is the immutable upload allow-list and size limit.
type UploadPolicy struct {
	maxBytes int64
	allowed  map[string]struct{}
}

func NewUploadPolicy(maxBytes int64, allowedTypes []string) UploadPolicy {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		if t = normalizeType(t); t != "" {
			allowed[t] = struct{}{}
		}
	}
	return UploadPolicy{maxBytes: maxBytes, allowed: allowed}
}

func (p UploadPolicy) MaxBytes() int64 {
	return p.maxBytes
}

// Allows reports whether contentType, ignoring parameters, is on the allow-list.
func (p UploadPolicy) Allows(contentType string) bool {
	_, ok := p.allowed[normalizeType(contentType)]
	return ok
}

// Validate checks an upload in order: presence, size, type, then for jpeg,
// png and gif that the bytes really are an image of that format. It never
// performs I/O beyond that.
func (p UploadPolicy) Validate(in UploadInput) error {
	if in.Data == nil || strings.TrimSpace(in.Filename) == "" {
		return ErrMissingFile
	}
	if in.Size() > p.maxBytes {
		return ErrFileTooLarge
	}
	ct := normalizeType(in.ContentType)
	if _, ok := p.allowed[ct]; !ok {
		return ErrUnsupportedType
	}
	if format, ok := imageFormats[ct]; ok {
		return verifyImage(in.Data, format)
	}
	return nil
}

func verifyImage(data []byte, format string) error {
	cfg, got, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || got != format {
		return ErrCorruptImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return ErrCorruptImage
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return ErrCorruptImage
	}
	return nil
}

// NormalizeType strips MIME parameters and lowercases, "Text/Plain; charset=utf-8" -> "text/plain".
func NormalizeType(contentType string) string {
	return normalizeType(contentType)
}

func normalizeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mediaType
}
