package auth

import "github.com/jrsteele09/evcharge-client/users"

const (
	DefaultPendingMessage   = "Your host registration is pending approval by admin."
	DefaultForbiddenMessage = "Pending host approval."
	DefaultLoginFailure     = "Invalid email or password"

	DefaultRegisterPending = "Your host registration is pending admin approval."
	DefaultRegistered      = "Registration successful! Please login."
	DefaultRegisterFailure = "Registration failed"
)

// LoginStatus is the outcome of a login attempt that reached the server.
type LoginStatus int

const (
	LoginOK LoginStatus = iota
	// LoginPending means the account is a host awaiting approval. Nothing is stored.
	LoginPending
)

func (s LoginStatus) String() string {
	if s == LoginPending {
		return "pending"
	}
	return "ok"
}

type LoginResult struct {
	Status   LoginStatus
	Identity users.Identity
	Message  string
	Redirect string // Landing page for the role, set when Status is LoginOK
}

// Registration is the register form.
type Registration struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Password  string     `json:"password"`
	Role      users.Role `json:"role"`
}

type RegisterResult struct {
	Role    users.Role
	Pending bool
	Message string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	Role      users.Role `json:"role"`
	Message   string     `json:"message"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Phone     string     `json:"phone"`
	CreatedAt string     `json:"createdAt"`
}

func (lr loginResponse) identity() users.Identity {
	return users.Identity{
		Role:      lr.Role,
		Email:     lr.Email,
		FirstName: lr.FirstName,
		LastName:  lr.LastName,
		Phone:     lr.Phone,
		CreatedAt: lr.CreatedAt,
	}
}

type registerResponse struct {
	Role    users.Role `json:"role"`
	Message string     `json:"message"`
}
