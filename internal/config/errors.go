package config

import "errors"

var (
	// ErrNotFound — файл конфигурации не найден.
	ErrNotFound = errors.New("config file not found")

	// ErrInvalid — конфигурация не прошла проверку.
	ErrInvalid = errors.New("invalid config")
)
