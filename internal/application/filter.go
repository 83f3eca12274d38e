package app

import "pantry-bot/internal/domain/entity"

// Метки с уверенностью не выше DefaultConfidenceThreshold отбрасываются.
const DefaultConfidenceThreshold = 0.7

// FilterDetections оставляет метки с уверенностью строго выше порога,
// нормализует их и убирает повторы, сохраняя порядок первого появления.
func FilterDetections(detections []entity.Detection, threshold float64) entity.LabelSet {
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if d.Confidence <= threshold {
			continue
		}
		labels = append(labels, entity.NormalizeLabel(d.Label))
	}
	return entity.NewLabelSet(labels...)
}
