package model

import "strings"

// User is the profile returned by /api/auth/me/.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName picks the friendliest non-empty name.
func (u *User) DisplayName() string {
	if u == nil {
		return "Driver"
	}
	if u.Name != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.Username != "" {
		return u.Username
	}
	return "Driver"
}

// Registration is the payload for /api/auth/register/. The API uses the
// username as e-mail address.
type Registration struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// NewRegistration fills Email from username.
func NewRegistration(name, username, password, confirm string) Registration {
	return Registration{
		Name:      name,
		Username:  username,
		Email:     username,
		Password:  password,
		Password2: confirm,
	}
}
