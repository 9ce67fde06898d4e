package domain

import "strings"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the authenticated identity together with its stored shipping profile.
type User struct {
	ID           int64  `json:"id" yaml:"id"`
	Username     string `json:"username" yaml:"username"`
	PasswordHash string `json:"-" yaml:"-"`
	Name         string `json:"name" yaml:"name"`
	Address      string `json:"address" yaml:"address"`
	City         string `json:"city" yaml:"city"`
	PostalCode   string `json:"postalCode" yaml:"postalCode"`
	Phone        string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email        string `json:"email" yaml:"email"`
	Role         Role   `json:"role" yaml:"role"`
}

// HasCompleteShipping reports whether name, address, city and postal code are all set.
func (u User) HasCompleteShipping() bool {
	return strings.TrimSpace(u.Name) != "" &&
		strings.TrimSpace(u.Address) != "" &&
		strings.TrimSpace(u.City) != "" &&
		strings.TrimSpace(u.PostalCode) != ""
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
