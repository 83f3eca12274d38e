// Package vision подготавливает снимки перед отправкой классификатору.
// С тегом сборки gocv используется OpenCV, без него работает заглушка.
package vision

// DefaultMaxSide ограничивает большую сторону снимка, в пикселях.
const DefaultMaxSide = 1024
