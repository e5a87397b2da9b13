package repository

import "errors"

// Sentinel errors returned by repositories. Handlers map these onto HTTP
// statuses; everything else is treated as an internal error.
var (
	ErrNotFound            = errors.New("not exist")
	ErrConflict            = errors.New("conflict")
	ErrOptionNotFound      = errors.New("option not exist")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientMinutes = errors.New("insufficient remainMinute")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
