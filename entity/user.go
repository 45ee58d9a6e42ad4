package entity

import (
	"net/http"
	"strings"
	"time"

	"courseadmin/lib/validate"
)

// Role controls access level within the API.
// Role hierarchy: RoleUser < RoleManager < RoleAdmin.
type Role string

const (
	RoleUser    Role = "user"    // registered participant
	RoleManager Role = "manager" // manages invitations of their own company
	RoleAdmin   Role = "admin"   // full access, reviews company registrations
)

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	Id           string    `json:"id" bson:"id"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	PasswordHash string    `json:"-" bson:"-"`
	Role         Role      `json:"role" bson:"role"`
	CompanyId    string    `json:"companyId,omitempty" bson:"company_id,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Manages reports whether the user may manage invitations and groups of the
// given company. Admins manage everything; a manager only their own company.
func (u *User) Manages(companyId string) bool {
	if u.IsAdmin() {
		return true
	}
	return u.Role == RoleManager && companyId != "" && u.CompanyId == companyId
}

// Register is the public user registration payload. InvitationCode is optional;
// when present it is redeemed in the same transaction that creates the user.
type Register struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required,max=200"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	InvitationCode string `json:"invitationCode" validate:"omitempty,max=32"`
}

func (r *Register) Bind(_ *http.Request) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return nil
}

type Login struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (l *Login) Bind(_ *http.Request) error {
	if err := validate.Struct(l); err != nil {
		return err
	}
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	return nil
}

// AssignRole is the admin payload that changes a user's role. A manager
// needs the company they manage; for other roles an empty CompanyId keeps
// the user's current company.
type AssignRole struct {
	Role      Role   `json:"role" validate:"required,oneof=user manager admin"`
	CompanyId string `json:"companyId" validate:"omitempty,max=36"`
}

func (a *AssignRole) Bind(_ *http.Request) error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	a.CompanyId = strings.TrimSpace(a.CompanyId)
	return nil
}

type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}
