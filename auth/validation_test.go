package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/evcharge-client/auth"
	"github.com/jrsteele09/evcharge-client/users"
)

func TestValidator_ValidateUserCredentials(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidateUserCredentials(" a@b.com ", "x"))
	})

	t.Run("missing password", func(t *testing.T) {
		require.ErrorIs(t, v.ValidateUserCredentials("a@b.com", ""), auth.MissingCredentialsErr)
	})

	t.Run("bad email", func(t *testing.T) {
		require.ErrorIs(t, v.ValidateUserCredentials("Bob <a@b.com>", "x"), auth.InvalidEmailErr)
	})
}

func TestValidator_ValidateRegistration(t *testing.T) {
	v := auth.NewValidator()
	valid := func() auth.Registration {
		return auth.Registration{FirstName: "A", LastName: "B", Email: "a@b.com", Phone: "1", Password: "x"}
	}

	t.Run("role defaults to user", func(t *testing.T) {
		reg := valid()
		require.NoError(t, v.ValidateRegistration(&reg))
		require.Equal(t, users.RoleUser, reg.Role)
	})

	t.Run("role is normalised", func(t *testing.T) {
		reg := valid()
		reg.Role = " host"
		require.NoError(t, v.ValidateRegistration(&reg))
		require.Equal(t, users.RoleHost, reg.Role)
	})

	t.Run("rejects other roles", func(t *testing.T) {
		for _, role := range []users.Role{users.RoleAdmin, users.RolePendingHost, "OWNER"} {
			reg := valid()
			reg.Role = role
			require.ErrorIs(t, v.ValidateRegistration(&reg), auth.InvalidRoleErr, role)
		}
	})

	t.Run("every field required", func(t *testing.T) {
		blank := []func(*auth.Registration){
			func(r *auth.Registration) { r.FirstName = "" },
			func(r *auth.Registration) { r.LastName = "" },
			func(r *auth.Registration) { r.Email = "" },
			func(r *auth.Registration) { r.Phone = "" },
			func(r *auth.Registration) { r.Password = "" },
		}
		for _, blankOut := range blank {
			reg := valid()
			blankOut(&reg)
			require.ErrorIs(t, v.ValidateRegistration(&reg), auth.MissingFieldErr)
		}
	})
}
