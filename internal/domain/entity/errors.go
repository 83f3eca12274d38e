package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind — вид ошибки, который видит слой представления.
type ErrorKind string

const (
	KindNetwork         ErrorKind = "network"          // транспорт, таймаут, 5xx
	KindInvalidResponse ErrorKind = "invalid_response" // тело ответа не разобрать
	KindInvalidImage    ErrorKind = "invalid_image"    // пустое или слишком большое изображение
	KindQueryFailed     ErrorKind = "query_failed"     // поиск в хранилище
	KindInsertFailed    ErrorKind = "insert_failed"    // запись в хранилище
	KindCommitFailed    ErrorKind = "commit_failed"    // часть пакета не записалась
)

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// ClassifierError возвращается при обращении к классификатору.
type ClassifierError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifierError) Error() string {
	if e.Err == nil {
		return "classifier: " + string(e.Kind)
	}
	return fmt.Sprintf("classifier: %s: %v", e.Kind, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// StoreError описывает сбой хранилища на конкретной метке.
type StoreError struct {
	Kind  ErrorKind
	Label string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// CommitError сообщает, какие метки не удалось записать.
type CommitError struct {
	Failed map[string]ErrorKind
}

func (e *CommitError) Error() string {
	labels := make([]string, 0, len(e.Failed))
	for l := range e.Failed {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return fmt.Sprintf("commit failed for %d item(s): %s", len(labels), strings.Join(labels, ", "))
}

// KindOf извлекает ErrorKind из цепочки ошибок.
func KindOf(err error) ErrorKind {
	var ce *ClassifierError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	var cm *CommitError
	if errors.As(err, &cm) {
		return KindCommitFailed
	}
	return ""
}
