package assistant

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var ErrInvalidImage = errors.New("imageData is not valid base64")

// DecodeImageData accepts bare base64 or a data: URL and returns the bytes and MIME type.
func DecodeImageData(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", ErrNoImage
	}

	mimeType := ""
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return nil, "", ErrInvalidImage
		}
		meta := strings.TrimPrefix(raw[:comma], "data:")
		meta = strings.TrimSuffix(meta, ";base64")
		mimeType = strings.TrimSpace(meta)
		raw = raw[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
	}
	if err != nil || len(data) == 0 {
		return nil, "", ErrInvalidImage
	}

	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		// Let the vision model decide; JPEG is what mobile cameras produce.
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}
