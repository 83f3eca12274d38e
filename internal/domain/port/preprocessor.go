package port

// ImagePreprocessor подготавливает снимок перед отправкой классификатору
type ImagePreprocessor interface {
	// Prepare возвращает изображение, пригодное для отправки
	Prepare(image []byte) ([]byte, error)
}
