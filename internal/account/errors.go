package account

import "errors"

var (
	// ErrInvalidPassword is the uniform credential failure: wrong password,
	// unknown account and corrupt vault all collapse into it.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrEmailAlreadyRegistered is returned by Signup for a taken email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
)
