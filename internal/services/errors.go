package services

import (
	"errors"

	"github.com/acadops/timetable-backend/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidResetToken  = errors.New("invalid reset token")
	ErrExpiredResetToken  = errors.New("reset token expired")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")

	// ErrNotFound aliases the repository sentinel so handlers match one
	// error regardless of layer.
	ErrNotFound = repository.ErrNotFound
)
