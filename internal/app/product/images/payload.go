package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/light-bringer/catalog-admin-service/internal/app/product/domain"
)

// DefaultMaxBytes is the largest accepted decoded image.
const DefaultMaxBytes = 1 << 20

const allowedMediaType = "data:image/jpeg"

// Decoder validates and decodes data URL image payloads.
type Decoder struct {
	MaxBytes int64
}

// NewDecoder creates a Decoder. A non-positive maxBytes uses DefaultMaxBytes.
func NewDecoder(maxBytes int64) Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Decoder{MaxBytes: maxBytes}
}

// Validate returns every problem of payload, or nil when it is acceptable.
func (d Decoder) Validate(payload string) []string {
	_, problems := d.decode(payload)
	return problems
}

// Decode returns the image bytes of payload.
func (d Decoder) Decode(payload string) ([]byte, error) {
	data, problems := d.decode(payload)
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidImage, strings.Join(problems, "; "))
	}
	return data, nil
}

func (d Decoder) decode(payload string) ([]byte, []string) {
	header, encoded, ok := strings.Cut(payload, ",")
	if !ok {
		return nil, []string{"Image must be a base64 data URL"}
	}

	var problems []string
	mediaType, _, _ := strings.Cut(header, ";")
	if mediaType != allowedMediaType {
		problems = append(problems, "Only image/jpeg type allowed")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, append(problems, "Image is not valid base64")
	}

	limit := d.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if int64(len(data)) > limit {
		problems = append(problems, fmt.Sprintf("The file size exceeds %s", humanSize(limit)))
	}

	if len(problems) == 0 {
		if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
			problems = append(problems, "Image cannot be decoded")
		}
	}
	if len(problems) > 0 {
		return nil, problems
	}
	return data, nil
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
