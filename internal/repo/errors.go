package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrClosed — хранилище уже закрыто.
	ErrClosed = errors.New("store closed")
)
