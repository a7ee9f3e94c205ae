package ioutils

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ImageService provides image inspection and recoding for page files.
//
// The assembler uses it to:
//   - Verify that downloaded page bytes decode as a well-formed image
//   - Recode formats the PDF writer cannot embed (e.g. WebP) to JPEG
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Validate checks that data decodes as a well-formed image and returns
// the detected format name ("jpeg", "png", "webp", …).
func (s *ImageService) Validate(data []byte) (string, error) {
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return format, nil
}

// ConvertToJPEG recodes an image of any registered format to JPEG
// bytes at 90% quality.
func (s *ImageService) ConvertToJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
