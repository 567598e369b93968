package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidIP          = errors.New("invalid ip address")
	ErrNotFound           = errors.New("record not found")
	ErrPersistence        = errors.New("persistence failure")
)
