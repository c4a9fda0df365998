package repo

import "errors"

// Общие ошибки хранилищ.
var (
	// ErrNotFound — снимок не найден.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — снимок с таким отпечатком для сцены уже сохранён.
	ErrAlreadyExists = errors.New("already exists")
)
