package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Registered so image.Decode can sniff the formats providers return.
	_ "image/png"
)

// Re-encode bounds for byte-size enforcement.
const (
	encodeStartQuality = 85
	encodeQualityStep  = 10
	encodeQualityFloor = 40
)

// EncodedImage is the outcome of decoding and (possibly) re-encoding a raw
// provider payload.
type EncodedImage struct {
	Data   []byte
	Width  int
	Height int
}

// EnforceByteLimit decodes the raw payload and, if it exceeds maxBytes,
// re-encodes it as JPEG at decreasing quality until it fits or the quality
// floor is reached. Output still over the limit at the floor is accepted: a
// usable-but-imperfect image beats failing the whole request.
//
// An undecodable payload returns an error wrapping ErrInvalidResponse.
func EnforceByteLimit(raw []byte, maxBytes int) (*EncodedImage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrInvalidResponse)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable image payload: %v", ErrInvalidResponse, err)
	}

	bounds := img.Bounds()
	encoded := &EncodedImage{
		Data:   raw,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	if maxBytes <= 0 || len(raw) <= maxBytes {
		return encoded, nil
	}

	for quality := encodeStartQuality; ; quality -= encodeQualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("%w: re-encode failed: %v", ErrInvalidResponse, err)
		}

		encoded.Data = buf.Bytes()
		if buf.Len() <= maxBytes || quality-encodeQualityStep < encodeQualityFloor {
			return encoded, nil
		}
	}
}
