package storage

import "errors"

var (
	// ErrNotFound возвращается, если записи с таким идентификатором нет.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownField возвращается для полей, которых нет в схеме.
	ErrUnknownField = errors.New("unknown field")
)
