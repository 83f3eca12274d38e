package entity

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// NormalizeLabel приводит метку к каноническому виду: NFC, без крайних пробелов,
// одиночные пробелы внутри, нижний регистр.
// Одна и та же функция используется при фильтрации, поиске и записи.
func NormalizeLabel(label string) string {
	s := norm.NFC.String(label)
	s = strings.Join(strings.Fields(s), " ")
	return lower.String(s)
}

// LabelSet — упорядоченное множество меток (порядок первого появления).
type LabelSet []string

// NewLabelSet строит множество, отбрасывая повторы и пустые строки.
func NewLabelSet(labels ...string) LabelSet {
	set := make(LabelSet, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		set = append(set, l)
	}
	return set
}

// Contains проверяет наличие метки.
func (s LabelSet) Contains(label string) bool {
	for _, l := range s {
		if l == label {
			return true
		}
	}
	return false
}

// Without возвращает копию множества без указанной метки.
func (s LabelSet) Without(label string) LabelSet {
	out := make(LabelSet, 0, len(s))
	for _, l := range s {
		if l != label {
			out = append(out, l)
		}
	}
	return out
}

// Clone возвращает независимую копию.
func (s LabelSet) Clone() LabelSet {
	if s == nil {
		return nil
	}
	out := make(LabelSet, len(s))
	copy(out, s)
	return out
}
