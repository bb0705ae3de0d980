// Package user carries the minimal account model: enough to own
// transfers and authenticate. Signup and profile management live in the
// wider platform, outside this service's scope.
package user

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role gates access to the admin surface.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is a platform account.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Password  string // bcrypt hash
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a customer account with a bcrypt-hashed password.
func New(username, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:       uuid.New(),
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     RoleCustomer,
	}, nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
