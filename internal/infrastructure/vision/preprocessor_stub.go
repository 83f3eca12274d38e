//go:build !gocv
// +build !gocv

package vision

import (
	"pantry-bot/internal/domain/entity"
	"pantry-bot/internal/domain/port"
)

// Preprocessor без OpenCV: снимок отправляется как есть.
type Preprocessor struct {
	MaxSide int
	Quality int
}

// NewPreprocessor создаёт препроцессор-заглушку (без OpenCV).
func NewPreprocessor(maxSide int) *Preprocessor {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Preprocessor{MaxSide: maxSide, Quality: 90}
}

// Prepare возвращает изображение без изменений.
func (p *Preprocessor) Prepare(imageData []byte) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, entity.ErrEmptyImage
	}
	return imageData, nil
}

var _ port.ImagePreprocessor = (*Preprocessor)(nil)
