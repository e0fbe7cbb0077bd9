package models

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// swagger:enum UserRole
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleStaff UserRole = "staff"
)

// User is an administrator account. Every write operation is attributed
// to a user.
type User struct {
	DefaultModel
	Name         string   `json:"name"`
	Email        string   `json:"email" gorm:"uniqueIndex"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role" gorm:"default:staff"`
}

func (u *User) BeforeSave(_ *gorm.DB) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if u.Role == "" {
		u.Role = RoleStaff
	}

	if !slices.Contains([]UserRole{RoleAdmin, RoleStaff}, u.Role) {
		return ErrUserRoleInvalid
	}

	return nil
}

// SetPassword hashes the cleartext password with bcrypt.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the cleartext password matches the
// stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
