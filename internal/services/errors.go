package services

import "errors"

var (
	ErrEmptyQuery = errors.New("missing query parameter 'q'")
	ErrEmptyID    = errors.New("missing book id")
)
