//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"

	"gocv.io/x/gocv"

	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// Preprocessor уменьшает снимок до MaxSide по большей стороне и перекодирует в JPEG.
type Preprocessor struct {
	MaxSide int
	Quality int
}

// NewPreprocessor создаёт препроцессор с заданным пределом стороны.
func NewPreprocessor(maxSide int) *Preprocessor {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Preprocessor{MaxSide: maxSide, Quality: 90}
}

// Prepare возвращает исходные байты, если снимок уже достаточно мал.
func (p *Preprocessor) Prepare(imageData []byte) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, entity.ErrEmptyImage
	}

	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Cols() <= p.MaxSide && mat.Rows() <= p.MaxSide {
		return imageData, nil
	}

	// Приводим изображение к стандартному размеру, классификатору большего не нужно.
	scale := float64(p.MaxSide) / float64(max(mat.Cols(), mat.Rows()))
	newW := int(float64(mat.Cols()) * scale)
	newH := int(float64(mat.Rows()) * scale)
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)

	img, err := resized.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var _ port.ImagePreprocessor = (*Preprocessor)(nil)
