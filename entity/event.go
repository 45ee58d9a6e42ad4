// Package entity defines domain types shared across the application.

package entity

import "time"

// Event kinds recorded in the audit trail and used to tag admin notifications.
const (
	EventInvitationCreated     = "invitation.created"
	EventInvitationDeactivated = "invitation.deactivated"
	EventRedemption            = "invitation.redeemed"
	EventRedemptionRejected    = "invitation.rejected"
	EventCompanyRegistered     = "company.registered"
	EventCompanyApproved       = "company.approved"
	EventCompanyRejected       = "company.rejected"
	EventUserRegistered        = "user.registered"
	EventGroupCreated          = "group.created"
	EventGroupStatus           = "group.status"
	EventMemberRemoved         = "group.member_removed"
	EventRoleAssigned          = "user.role_assigned"
)

var allEvents = []string{
	EventInvitationCreated,
	EventInvitationDeactivated,
	EventRedemption,
	EventRedemptionRejected,
	EventCompanyRegistered,
	EventCompanyApproved,
	EventCompanyRejected,
	EventUserRegistered,
	EventGroupCreated,
	EventGroupStatus,
	EventMemberRemoved,
	EventRoleAssigned,
}

func IsValidEvent(kind string) bool {
	for _, e := range allEvents {
		if e == kind {
			return true
		}
	}
	return false
}

// AuditEvent is one append-only audit trail record.
type AuditEvent struct {
	Kind      string            `json:"kind" bson:"kind"`
	ActorId   string            `json:"actorId,omitempty" bson:"actor_id,omitempty"`
	SubjectId string            `json:"subjectId" bson:"subject_id"`
	Details   map[string]string `json:"details,omitempty" bson:"details,omitempty"`
	Time      time.Time         `json:"time" bson:"time"`
}

func NewEvent(kind, actorId, subjectId string, details map[string]string) *AuditEvent {
	return &AuditEvent{
		Kind:      kind,
		ActorId:   actorId,
		SubjectId: subjectId,
		Details:   details,
		Time:      time.Now().UTC(),
	}
}
