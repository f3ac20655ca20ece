// Package imgutil provides image recompression and data URI helpers.
package imgutil

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
)

// DefaultJPEGQuality is the quality used when recompressing generated images.
const DefaultJPEGQuality = 85

// ErrEmptyImage is returned for empty image payloads.
var ErrEmptyImage = errors.New("empty image data")

// CompressToJPEG decodes PNG, GIF or JPEG data and re-encodes it as JPEG.
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI encodes data as a base64 data URI. An empty mimeType is sniffed from the bytes.
func DataURI(mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DataURIFromBase64 wraps an already base64-encoded payload as a data URI.
func DataURIFromBase64(mimeType, b64 string) (string, error) {
	if b64 == "" {
		return "", ErrEmptyImage
	}
	if _, err := base64.StdEncoding.DecodeString(b64); err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}
	return "data:" + mimeType + ";base64," + b64, nil
}

// IsDataURI reports whether ref is an inline data URI rather than a hosted URL.
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}
