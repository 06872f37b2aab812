package auth

import "github.com/jrsteele09/evcharge-client/internal/errors"

var (
	MissingCredentialsErr = errors.Wrapf(errors.ErrInvalidInput, "email and password are required")
	InvalidEmailErr       = errors.Wrapf(errors.ErrInvalidInput, "invalid email format")
	MissingFieldErr       = errors.Wrapf(errors.ErrInvalidInput, "all fields are required")
	InvalidRoleErr        = errors.Wrapf(errors.ErrInvalidInput, "role must be USER or HOST")
)
