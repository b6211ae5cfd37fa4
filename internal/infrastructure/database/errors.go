package database

import "errors"

var (
	// ErrUnsupportedScheme is returned for URLs whose scheme selects no driver.
	ErrUnsupportedScheme = errors.New("database: unsupported url scheme (supported: sqlite, mysql, postgres)")

	// ErrInvalidURL is returned when the connection URL cannot be parsed.
	ErrInvalidURL = errors.New("database: invalid url")
)
