package domain

import "errors"

var (
	ErrObjectExists  = errors.New("object already exists")
	ErrInvalidKey    = errors.New("invalid object key")
	ErrKeyOutOfScope = errors.New("object key outside caller scope")
)
