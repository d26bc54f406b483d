// Package b64 encodes image buffers for transport inside JSON bodies and data
// URIs.
package b64

import (
	"encoding/base64"
	"strings"
)

// ChunkSize is the default slice length fed to the encoder. It is a multiple
// of 3 so every chunk but the last encodes without padding, which keeps the
// concatenated output identical to a single-pass encode.
const ChunkSize = 32 * 1024 / 3 * 3

// EncodeChunked base64-encodes data in fixed-size slices of at most chunk
// bytes. Non-positive or unaligned chunk sizes are rounded down to a multiple
// of 3 (minimum 3).
func EncodeChunked(data []byte, chunk int) string {
	chunk = alignChunk(chunk)
	var b strings.Builder
	b.Grow(base64.StdEncoding.EncodedLen(len(data)))
	buf := make([]byte, base64.StdEncoding.EncodedLen(chunk))
	for start := 0; start < len(data); start += chunk {
		end := start + chunk
		if end > len(data) {
			end = len(data)
		}
		n := base64.StdEncoding.EncodedLen(end - start)
		base64.StdEncoding.Encode(buf[:n], data[start:end])
		b.Write(buf[:n])
	}
	return b.String()
}

// Encode is EncodeChunked with ChunkSize.
func Encode(data []byte) string {
	return EncodeChunked(data, ChunkSize)
}

// Decode accepts standard or raw base64 as well as a full data URI.
func Decode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if idx := strings.Index(s, ","); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "=") || len(s)%4 == 0 {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// DataURI renders data as a data URI for the given content type.
func DataURI(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + Encode(data)
}

func alignChunk(chunk int) int {
	if chunk < 3 {
		return 3
	}
	return chunk - chunk%3
}
