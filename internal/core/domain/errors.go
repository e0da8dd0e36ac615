package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrAlreadyExists        = errors.New("already exists")
	ErrDuplicateExpectation = errors.New("duplicate expectation")
	ErrInvalidExpectation   = errors.New("invalid expectation")
	ErrValidationFailed     = errors.New("one or more validations failed")
)
