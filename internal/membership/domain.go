// internal/membership/domain.go
package membership

import (
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

// User represents a registered account. Users are immutable once created.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("user: missing id")
	}
	if !u.Role.Valid() {
		return fmt.Errorf("user %s: unknown role %q", u.ID, u.Role)
	}
	return nil
}

// Credential holds a user's salted password hash.
type Credential struct {
	UserID       string `json:"userId"`
	PasswordHash string `json:"passwordHash"`
	Salt         string `json:"salt"`
}

func (c Credential) Validate() error {
	if c.UserID == "" || c.PasswordHash == "" || c.Salt == "" {
		return errors.New("credential: missing user, hash or salt")
	}
	return nil
}

// NewCredential hashes password for userID.
func NewCredential(userID, password string) (Credential, error) {
	hash, salt, err := hashPassword(password)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return Credential{UserID: userID, PasswordHash: hash, Salt: salt}, nil
}

// Matches reports whether password is the one the credential was made from.
func (c Credential) Matches(password string) (bool, error) {
	return verifyPassword(password, c.Salt, c.PasswordHash)
}

// CountMembers counts users holding the member role.
func CountMembers(users []User) int {
	n := 0
	for _, u := range users {
		if u.Role == RoleMember {
			n++
		}
	}
	return n
}
