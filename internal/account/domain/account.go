package domain

import "time"

// AccountRole is the coarse application role carried in access-token claims.
type AccountRole = string

const (
	RoleUser  AccountRole = "user"
	RoleAdmin AccountRole = "admin"
)

// Account represents a login-capable account in the business application.
// PasswordHash is a bcrypt hash; the Gate never sees or stores plaintext.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         AccountRole
	AvatarURL    string
	Active       bool
	LastLoginAt  *time.Time // nil before first successful login
	LastLoginIP  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary is the caller-visible projection of an Account returned on login.
// It never includes the password hash or last-login metadata.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Summary returns the caller-visible projection of the account.
func (a *Account) Summary() Summary {
	return Summary{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		AvatarURL: a.AvatarURL,
	}
}
