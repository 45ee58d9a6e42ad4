package entity

import "time"

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipRemoved MembershipStatus = "removed"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one row per (group_id, user_id).
type GroupMembership struct {
	GroupId      string           `json:"groupId" bson:"group_id"`
	UserId       string           `json:"userId" bson:"user_id"`
	Status       MembershipStatus `json:"status" bson:"status"`
	InvitationId string           `json:"invitationId,omitempty" bson:"invitation_id,omitempty"`
	JoinedAt     time.Time        `json:"joinedAt" bson:"joined_at"`
}

type CompanyMembership struct {
	CompanyId string    `json:"companyId" bson:"company_id"`
	UserId    string    `json:"userId" bson:"user_id"`
	JoinedAt  time.Time `json:"joinedAt" bson:"joined_at"`
}

// RedemptionState is the enrollment state machine:
// pending -> validated -> linked, or pending -> rejected.
type RedemptionState string

const (
	StatePending   RedemptionState = "pending"
	StateValidated RedemptionState = "validated"
	StateLinked    RedemptionState = "linked"
	StateRejected  RedemptionState = "rejected"
)

// Redemption is the outcome of consuming an invitation code.
type Redemption struct {
	Success      bool            `json:"success"`
	State        RedemptionState `json:"state"`
	InvitationId string          `json:"invitationId,omitempty"`
	Scope        Scope           `json:"scope,omitempty"`
	GroupId      string          `json:"groupId,omitempty"`
	CompanyId    string          `json:"companyId,omitempty"`
	UserId       string          `json:"userId,omitempty"`
	Error        Reason          `json:"error,omitempty"`
	Message      string          `json:"message"`
}
