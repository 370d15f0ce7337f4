package services

import "errors"

// Sentinel errors for the service layer. Callers match them with errors.Is.
var (
	ErrNotFound                  = errors.New("content not found")
	ErrExpired                   = errors.New("content has expired")
	ErrInvalidPassword           = errors.New("invalid password")
	ErrValidation                = errors.New("invalid input")
	ErrSlugTaken                 = errors.New("custom link already exists")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrSelfLockout               = errors.New("administrators cannot demote or delete themselves")
	ErrQuotaExceeded             = errors.New("daily quota exceeded")
	ErrFileTooLarge              = errors.New("file exceeds maximum allowed size")
	ErrTextTooLarge              = errors.New("text exceeds maximum allowed size")
	ErrAnonymousCreationDisabled = errors.New("anonymous creation is disabled")
	ErrStorage                   = errors.New("storage failure")
)
