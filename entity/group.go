package entity

import (
	"fmt"
	"net/http"
	"time"

	"courseadmin/lib/validate"
)

type GroupStatus string

const (
	GroupDraft     GroupStatus = "draft"
	GroupActive    GroupStatus = "active"
	GroupFull      GroupStatus = "full" // derived, never stored
	GroupClosed    GroupStatus = "closed"
	GroupCompleted GroupStatus = "completed"
	GroupCancelled GroupStatus = "cancelled"
)

// StoredStatus reports whether the status may be persisted on a group.
func (s GroupStatus) StoredStatus() bool {
	switch s {
	case GroupDraft, GroupActive, GroupClosed, GroupCompleted, GroupCancelled:
		return true
	}
	return false
}

// Group is a training group. The participant count is not a field: it is
// counted from active memberships whenever it is needed.
type Group struct {
	Id              string      `json:"id" bson:"id"`
	Name            string      `json:"name" bson:"name"`
	CompanyId       string      `json:"companyId,omitempty" bson:"company_id,omitempty"`
	MaxParticipants int         `json:"maxParticipants" bson:"max_participants"`
	Status          GroupStatus `json:"status" bson:"status"`
	CreatedBy       string      `json:"createdBy" bson:"created_by"`
	CreatedAt       time.Time   `json:"createdAt" bson:"created_at"`
}

// Capacity is the authoritative participant count of a group.
// Percentage is for progress bars only.
type Capacity struct {
	MaxParticipants     int  `json:"maxParticipants"`
	CurrentParticipants int  `json:"currentParticipants"`
	AvailableSpots      int  `json:"availableSpots"`
	HasCapacity         bool `json:"hasCapacity"`
	Percentage          int  `json:"percentage"`
}

func NewCapacity(maxParticipants, current int) Capacity {
	c := Capacity{
		MaxParticipants:     maxParticipants,
		CurrentParticipants: current,
		HasCapacity:         current < maxParticipants,
	}
	if current < maxParticipants {
		c.AvailableSpots = maxParticipants - current
	}
	if maxParticipants > 0 {
		c.Percentage = current * 100 / maxParticipants
		if c.Percentage > 100 {
			c.Percentage = 100
		}
	}
	return c
}

// GroupView is a group as returned by the API, with the derived status.
type GroupView struct {
	Group
	EffectiveStatus  GroupStatus `json:"effectiveStatus"`
	RegistrationOpen bool        `json:"registrationOpen"`
	Capacity         Capacity    `json:"capacity"`
	CompanyName      string      `json:"companyName,omitempty"`
}

type CreateGroup struct {
	Name            string      `json:"name" validate:"required,max=200"`
	CompanyId       string      `json:"companyId" validate:"omitempty"`
	MaxParticipants int         `json:"maxParticipants" validate:"required,min=1,max=10000"`
	Status          GroupStatus `json:"status" validate:"omitempty"`
}

func (g *CreateGroup) Bind(_ *http.Request) error {
	if err := validate.Struct(g); err != nil {
		return err
	}
	if g.Status != "" && !g.Status.StoredStatus() {
		return fmt.Errorf("status %s is not allowed", g.Status)
	}
	return nil
}

type SetGroupStatus struct {
	Status GroupStatus `json:"status" validate:"required"`
}

func (s *SetGroupStatus) Bind(_ *http.Request) error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if !s.Status.StoredStatus() {
		return fmt.Errorf("status %s is not allowed", s.Status)
	}
	return nil
}
