package auth

import (
	"net/mail"
	"strings"

	"github.com/jrsteele09/evcharge-client/users"
)

// Validator checks forms before they are sent, mirroring the required
// attributes of the login and register pages.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return MissingCredentialsErr
	}
	return v.ValidateEmail(email)
}

func (v *Validator) ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, " <>") {
		return InvalidEmailErr
	}
	return nil
}

// ValidateRegistration requires every field and a role a new account may ask for.
// The role is normalised in place.
func (v *Validator) ValidateRegistration(reg *Registration) error {
	for _, field := range []string{reg.FirstName, reg.LastName, reg.Email, reg.Phone, reg.Password} {
		if strings.TrimSpace(field) == "" {
			return MissingFieldErr
		}
	}
	if err := v.ValidateEmail(strings.TrimSpace(reg.Email)); err != nil {
		return err
	}

	if reg.Role == "" {
		reg.Role = users.RoleUser
	}
	role, err := users.ParseRole(string(reg.Role))
	if err != nil || !role.Registrable() {
		return InvalidRoleErr
	}
	reg.Role = role
	return nil
}
