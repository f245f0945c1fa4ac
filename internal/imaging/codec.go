// Package imaging decodes and encodes the JPEG frames the detection server
// receives and annotates, mapping failures onto the detecterr taxonomy
// (spec §7).
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/blue-onyx-go/blueonyx/internal/detecterr"
)

// jpegMagic is the two-byte SOI marker every JPEG stream starts with.
var jpegMagic = []byte{0xFF, 0xD8}

// Sniff reports whether data begins with a JPEG start-of-image marker.
func Sniff(data []byte) bool {
	return len(data) >= 2 && bytes.Equal(data[:2], jpegMagic)
}

// DecodeJPEG decodes a JPEG frame from data, returning a detecterr-tagged
// error when the bytes are not a JPEG at all (UnsupportedFormat) or are a
// JPEG that fails to decode (MalformedImage).
func DecodeJPEG(data []byte) (image.Image, error) {
	if !Sniff(data) {
		return nil, detecterr.New(detecterr.KindUnsupportedFormat, "decode",
			"request body is not a JPEG image")
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, detecterr.Wrap(detecterr.KindMalformedImage, "decode", err)
	}
	return img, nil
}

// EncodeJPEG encodes img as a JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imaging: encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
