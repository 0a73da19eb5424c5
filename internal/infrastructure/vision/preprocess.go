package vision

import (
	"image"

	"golang.org/x/image/draw"

	"radiology-bot/internal/domain/entity"
)

const (
	// SmallSize вход классификатора низкого разрешения
	SmallSize = 224
	// LargeSize вход классификатора высокого разрешения
	LargeSize = 512
	// AttentionSize вход трансформера rad-dino
	AttentionSize = 518

	// диапазон интенсивностей, на котором обучались классификаторы
	intensityRange = 1024.0
)

// Preprocessed результат подготовки снимка для ансамбля.
type Preprocessed struct {
	Original image.Image     // после коррекции ориентации
	Small    entity.Tensor   // [1,1,small,small]
	Large    entity.Tensor   // [1,1,large,large]
	Crop     entity.Geometry // квадрат, из которого получены оба тензора
}

// Preprocess декодирует снимок и готовит два тензора разного разрешения
// из одного центрального квадрата.
func Preprocess(raw []byte, small, large int) (*Preprocessed, error) {
	img, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	gray := toGray(img)
	b := gray.Bounds()
	crop := entity.Geometry{Width: b.Dx(), Height: b.Dy(), Region: CenterCrop(b.Dx(), b.Dy())}

	return &Preprocessed{
		Original: img,
		Small:    grayTensor(gray, crop.Region, small),
		Large:    grayTensor(gray, crop.Region, large),
		Crop:     crop,
	}, nil
}

// CenterCrop возвращает центральный квадрат со стороной min(width, height).
func CenterCrop(width, height int) image.Rectangle {
	size := min(width, height)
	x := width/2 - size/2
	y := height/2 - size/2
	return image.Rect(x, y, x+size, y+size)
}

// Normalize переводит яркость [0,255] в диапазон [-1024,1024].
func Normalize(v float64) float64 {
	return (2*(v/255) - 1) * intensityRange
}

// toGray переводит изображение в оттенки серого с началом координат в (0,0).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// grayTensor вырезает область, масштабирует до size x size билинейно и нормализует.
func grayTensor(gray *image.Gray, region image.Rectangle, size int) entity.Tensor {
	scaled := image.NewGray16(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), gray, region, draw.Src, nil)

	t := entity.NewTensor(1, 1, size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := float64(scaled.Gray16At(x, y).Y) / 257
			t.Data[y*size+x] = float32(Normalize(v))
		}
	}
	return t
}

// RGBTensor растягивает всё изображение до size x size и нормализует каналы
// по mean/std: так сетка внимания ложится на снимок без сдвига.
func RGBTensor(img image.Image, size int, mean, std [3]float64) entity.Tensor {
	scaled := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := entity.NewTensor(1, 3, size, size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := scaled.RGBAAt(x, y)
			px := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
			for ch := 0; ch < 3; ch++ {
				t.Data[ch*plane+y*size+x] = float32((px[ch]/255 - mean[ch]) / std[ch])
			}
		}
	}
	return t
}
