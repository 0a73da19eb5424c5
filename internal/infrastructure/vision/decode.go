package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	"radiology-bot/internal/domain/entity"
)

// Decode декодирует изображение и поворачивает его по EXIF-ориентации:
// снимки с телефона часто приходят повёрнутыми.
func Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, entity.ErrDecode
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", entity.ErrDecode)
	}
	return img, nil
}

// EncodeJPEG кодирует изображение в JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePNG кодирует изображение в PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
