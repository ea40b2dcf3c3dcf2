package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrInvalidXML    = errors.New("invalid xml")
	ErrInvalidTag    = errors.New("invalid tag")
)
