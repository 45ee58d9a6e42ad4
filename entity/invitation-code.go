package entity

import (
	"net/http"
	"strings"
	"time"

	"courseadmin/lib/validate"
)

// Scope selects what an invitation code grants membership to.
// A code targets exactly one company or exactly one group.
type Scope string

const (
	ScopeCompany Scope = "company"
	ScopeGroup   Scope = "group"
)

const (
	MaxInvitationUses     = 1000
	MaxInvitationValidity = 365 // days
)

// InvitationCode is a shareable token redeemed during registration.
// CurrentUses only grows, and only through the conditional increment in the
// store, so 0 <= CurrentUses <= MaxUses holds under concurrent redemption.
type InvitationCode struct {
	Id          string    `json:"id" bson:"id"`
	Code        string    `json:"code" bson:"code"`
	Scope       Scope     `json:"scope" bson:"scope"`
	TargetId    string    `json:"targetId" bson:"target_id"`
	MaxUses     int       `json:"maxUses" bson:"max_uses"`
	CurrentUses int       `json:"currentUses" bson:"current_uses"`
	ExpiresAt   time.Time `json:"expiresAt" bson:"expires_at"`
	IsActive    bool      `json:"isActive" bson:"is_active"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedBy   string    `json:"createdBy" bson:"created_by"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
}

// Usable reports whether the code can be redeemed at the given instant.
func (c *InvitationCode) Usable(now time.Time) bool {
	return c.IsActive && now.Before(c.ExpiresAt) && c.CurrentUses < c.MaxUses
}

func (c *InvitationCode) RemainingUses() int {
	if c.CurrentUses >= c.MaxUses {
		return 0
	}
	return c.MaxUses - c.CurrentUses
}

// NormalizeCode is the form used for storage and comparison.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InvitationWithDetails is the list item shown in the invitation tables.
type InvitationWithDetails struct {
	InvitationCode
	RemainingUses int    `json:"remainingUses"`
	IsUsable      bool   `json:"isUsable"`
	TargetName    string `json:"targetName"`
}

// CreateInvitation is the payload for both company and group invitations;
// Scope and, for groups, TargetId are filled from the route.
type CreateInvitation struct {
	Scope        Scope  `json:"-"`
	TargetId     string `json:"-"`
	CompanyId    string `json:"companyId" validate:"omitempty"`
	MaxUses      int    `json:"maxUses" validate:"required,min=1,max=1000"`
	ValidForDays int    `json:"validForDays" validate:"required,min=1,max=365"`
	Description  string `json:"description" validate:"omitempty,max=500"`
}

func (c *CreateInvitation) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// CheckInvitation is the body of the public company invitation check.
type CheckInvitation struct {
	InvitationCode string `json:"invitationCode" validate:"required"`
}

func (c *CheckInvitation) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// UseInvitation is the body of the public group invitation redemption.
type UseInvitation struct {
	InvitationCode string `json:"invitationCode" validate:"required"`
	UserId         string `json:"userId" validate:"required"`
}

func (u *UseInvitation) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

// CompanyInvitationCheck answers the public company invitation check.
type CompanyInvitationCheck struct {
	IsValid     bool   `json:"isValid"`
	CompanyName string `json:"companyName,omitempty"`
	CompanyId   string `json:"companyId,omitempty"`
	Reason      Reason `json:"reason,omitempty"`
	Message     string `json:"message"`
}

// GroupInvitationCheck answers the public group invitation validation.
type GroupInvitationCheck struct {
	Valid         bool       `json:"valid"`
	Group         *GroupView `json:"group,omitempty"`
	RemainingUses int        `json:"remainingUses,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Reason        Reason     `json:"reason,omitempty"`
	Message       string     `json:"message"`
}
