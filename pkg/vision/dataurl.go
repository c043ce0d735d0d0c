package vision

import (
	"encoding/base64"
	"strings"
)

// EncodeDataURL renders data as a base64 data: URL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the payload and MIME type of a base64 data: URL.
// A bare base64 string is accepted and reported as image/jpeg.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrNoImage
	}

	mime := "image/jpeg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", ErrInvalidDataURL
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", ErrInvalidDataURL
		}
		if m := strings.TrimSuffix(meta, ";base64"); m != "" {
			mime = m
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidDataURL
	}
	if len(data) == 0 {
		return nil, "", ErrNoImage
	}
	return data, mime, nil
}
