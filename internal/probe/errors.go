package probe

import "errors"

// Ошибки проверок.
var (
	// ErrEmptyURL — не задан URL.
	ErrEmptyURL = errors.New("url is required")

	// ErrFetch — запрос не выполнен (сеть, DNS, таймаут).
	ErrFetch = errors.New("fetch failed")
)
