package report

import (
	"encoding/json"
	"io"

	"pantry-bot/internal/domain/entity"
)

// JSONWriter выводит отчёты в JSON.
type JSONWriter struct {
	output io.Writer
}

func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

type detectionJSON struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type sessionJSON struct {
	ID         string                      `json:"id"`
	Phase      entity.Phase                `json:"phase"`
	Detections []detectionJSON             `json:"detections"`
	Labels     []string                    `json:"labels"`
	New        []string                    `json:"new"`
	Existing   []string                    `json:"existing"`
	Added      []string                    `json:"added,omitempty"`
	Failed     map[string]entity.ErrorKind `json:"failed,omitempty"`
	Error      *errorJSON                  `json:"error,omitempty"`
}

type errorJSON struct {
	Kind    entity.ErrorKind `json:"kind"`
	Label   string           `json:"label,omitempty"`
	Message string           `json:"message"`
}

type recordJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WriteSession выводит состояние сессии сканирования.
func (w *JSONWriter) WriteSession(s entity.ScanSession) error {
	out := sessionJSON{
		ID:         s.ID,
		Phase:      s.Phase,
		Detections: make([]detectionJSON, 0, len(s.RawDetections)),
		Labels:     nonNil(s.Labels),
		New:        nonNil(s.New),
		Existing:   nonNil(s.Existing),
	}
	for _, d := range s.RawDetections {
		out.Detections = append(out.Detections, detectionJSON{Label: d.Label, Confidence: d.Confidence})
	}
	if s.Result != nil {
		out.Added = s.Result.Succeeded
		out.Failed = s.Result.Failed
	}
	if s.Err != nil {
		out.Error = &errorJSON{Kind: s.Err.Kind, Label: s.Err.Label, Message: s.Err.Message}
	}
	return w.encode(out)
}

// WriteInventory выводит записи инвентаря.
func (w *JSONWriter) WriteInventory(recs []entity.IngredientRecord) error {
	out := make([]recordJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordJSON{ID: r.ID, Name: r.Name})
	}
	return w.encode(out)
}

func (w *JSONWriter) encode(v any) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil(labels entity.LabelSet) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}
