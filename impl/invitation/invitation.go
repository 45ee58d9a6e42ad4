// Package invitation validates, issues and deactivates invitation codes.
// Validation has no side effects and may be called on every keystroke.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"courseadmin/entity"
	"courseadmin/internal/database"
	"courseadmin/internal/metrics"
	"courseadmin/lib/clock"
	"courseadmin/lib/codegen"
	"courseadmin/lib/sl"

	"github.com/google/uuid"
)

const generateAttempts = 5

type Database interface {
	CreateInvitation(ctx context.Context, code *entity.InvitationCode) error
	InvitationByCode(ctx context.Context, code string) (*entity.InvitationCode, error)
	InvitationById(ctx context.Context, id string) (*entity.InvitationCode, error)
	ListInvitations(ctx context.Context, scope entity.Scope, targetId string) ([]*entity.InvitationCode, error)
	DeactivateInvitation(ctx context.Context, id string) error
	GroupById(ctx context.Context, id string) (*entity.Group, error)
	CompanyById(ctx context.Context, id string) (*entity.Company, error)
}

type CapacityTracker interface {
	HasCapacity(ctx context.Context, groupId string) (bool, error)
}

// Target is what a usable code links the registrant to.
type Target struct {
	Scope     entity.Scope `json:"scope"`
	TargetId  string       `json:"targetId"`
	Name      string       `json:"name"`
	CompanyId string       `json:"companyId,omitempty"`
}

type Result struct {
	Valid         bool                   `json:"valid"`
	Reason        entity.Reason          `json:"reason,omitempty"`
	Message       string                 `json:"message"`
	Target        *Target                `json:"target,omitempty"`
	RemainingUses int                    `json:"remainingUses"`
	ExpiresAt     time.Time              `json:"expiresAt"`
	Code          *entity.InvitationCode `json:"-"`
}

type Service struct {
	db       Database
	capacity CapacityTracker
	now      clock.Func
	log      *slog.Logger
}

func New(db Database, capacity CapacityTracker, now clock.Func, log *slog.Logger) *Service {
	if now == nil {
		now = clock.System
	}
	return &Service{
		db:       db,
		capacity: capacity,
		now:      now,
		log:      log.With(sl.Module("invitation")),
	}
}

// Check returns nil if the code is usable at now, otherwise a Failure
// naming the first rule it breaks. A nil code is NotFound.
func Check(code *entity.InvitationCode, now time.Time) error {
	switch {
	case code == nil:
		return entity.Fail(entity.ReasonNotFound, "Invitation code not found")
	case !code.IsActive:
		return entity.Fail(entity.ReasonDeactivated, "Invitation code has been deactivated")
	case !now.Before(code.ExpiresAt):
		return entity.Fail(entity.ReasonExpired, "Invitation code has expired")
	case code.CurrentUses >= code.MaxUses:
		return entity.Fail(entity.ReasonUsageLimitReached, "Invitation code usage limit reached")
	}
	return nil
}

// Validate looks the code up and reports whether it can be redeemed now.
// An unusable code is a valid answer (Valid=false), not an error; errors are
// returned only for an empty code or a store failure.
func (s *Service) Validate(ctx context.Context, code string) (*Result, error) {
	normalized := entity.NormalizeCode(code)
	if normalized == "" {
		return nil, entity.Fail(entity.ReasonValidation, "invitation code is required")
	}
	inv, err := s.db.InvitationByCode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("find invitation: %w", err)
	}

	scope := ""
	if inv != nil {
		scope = string(inv.Scope)
	}
	if err = Check(inv, s.now()); err != nil {
		metrics.RecordValidation(scope, string(entity.ReasonOf(err)))
		return &Result{
			Valid:   false,
			Reason:  entity.ReasonOf(err),
			Message: err.Error(),
			Code:    inv,
		}, nil
	}

	target, err := s.resolve(ctx, inv)
	if err != nil {
		var failure *entity.Failure
		if errors.As(err, &failure) {
			metrics.RecordValidation(scope, string(failure.Reason))
			return &Result{Valid: false, Reason: failure.Reason, Message: failure.Message, Code: inv}, nil
		}
		return nil, err
	}
	metrics.RecordValidation(scope, "")
	return &Result{
		Valid:         true,
		Message:       fmt.Sprintf("You will be linked to %s", target.Name),
		Target:        target,
		RemainingUses: inv.RemainingUses(),
		ExpiresAt:     inv.ExpiresAt,
		Code:          inv,
	}, nil
}

// resolve finds the company or group the code points to. A code whose target
// vanished or whose company is no longer active is reported as unusable.
func (s *Service) resolve(ctx context.Context, inv *entity.InvitationCode) (*Target, error) {
	target := &Target{Scope: inv.Scope, TargetId: inv.TargetId}
	switch inv.Scope {
	case entity.ScopeCompany:
		company, err := s.db.CompanyById(ctx, inv.TargetId)
		if err != nil {
			return nil, err
		}
		if company == nil {
			return nil, entity.Fail(entity.ReasonNotFound, "Company of this invitation no longer exists")
		}
		if company.Status != entity.CompanyActive {
			return nil, entity.Fail(entity.ReasonDeactivated, "Company of this invitation is not active")
		}
		target.Name = company.CompanyName
		target.CompanyId = company.Id
	case entity.ScopeGroup:
		group, err := s.db.GroupById(ctx, inv.TargetId)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, entity.Fail(entity.ReasonNotFound, "Group of this invitation no longer exists")
		}
		target.Name = group.Name
		target.CompanyId = group.CompanyId
	default:
		return nil, fmt.Errorf("invitation %s has unknown scope %q", inv.Id, inv.Scope)
	}
	return target, nil
}

// Create issues a new code for a company or a group. Group codes are only
// issued while the group has free spots.
func (s *Service) Create(ctx context.Context, actor *entity.User, req *entity.CreateInvitation) (*entity.InvitationCode, error) {
	if actor == nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	if req.MaxUses < 1 || req.MaxUses > entity.MaxInvitationUses {
		return nil, entity.Fail(entity.ReasonValidation, "maxUses must be between 1 and %d", entity.MaxInvitationUses)
	}
	if req.ValidForDays < 1 || req.ValidForDays > entity.MaxInvitationValidity {
		return nil, entity.Fail(entity.ReasonValidation, "validForDays must be between 1 and %d", entity.MaxInvitationValidity)
	}
	if req.TargetId == "" {
		return nil, entity.Fail(entity.ReasonValidation, "target id is required")
	}

	description := ""
	switch req.Scope {
	case entity.ScopeCompany:
		company, err := s.db.CompanyById(ctx, req.TargetId)
		if err != nil {
			return nil, err
		}
		if company == nil {
			return nil, entity.Fail(entity.ReasonNotFound, "company not found")
		}
		if !actor.Manages(company.Id) {
			return nil, entity.Fail(entity.ReasonForbidden, "not allowed to manage invitations of this company")
		}
		if company.Status != entity.CompanyActive {
			return nil, entity.Fail(entity.ReasonValidation, "company is not active")
		}
	case entity.ScopeGroup:
		group, err := s.db.GroupById(ctx, req.TargetId)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, entity.Fail(entity.ReasonNotFound, "group not found")
		}
		if !actor.Manages(group.CompanyId) {
			return nil, entity.Fail(entity.ReasonForbidden, "not allowed to manage invitations of this group")
		}
		if group.Status != entity.GroupActive && group.Status != entity.GroupDraft {
			return nil, entity.Fail(entity.ReasonGroupClosed, "group is %s", group.Status)
		}
		open, err := s.capacity.HasCapacity(ctx, group.Id)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, entity.Fail(entity.ReasonCapacityExceeded, "group has no free spots")
		}
		description = req.Description
	default:
		return nil, entity.Fail(entity.ReasonValidation, "unknown scope %q", req.Scope)
	}

	now := s.now()
	inv := &entity.InvitationCode{
		Id:          uuid.NewString(),
		Scope:       req.Scope,
		TargetId:    req.TargetId,
		MaxUses:     req.MaxUses,
		CurrentUses: 0,
		ExpiresAt:   clock.DaysFrom(now, req.ValidForDays),
		IsActive:    true,
		Description: description,
		CreatedBy:   actor.Id,
		CreatedAt:   now,
	}

	var err error
	for attempt := 1; ; attempt++ {
		inv.Code, err = codegen.Generate()
		if err != nil {
			return nil, err
		}
		err = s.db.CreateInvitation(ctx, inv)
		if err == nil {
			break
		}
		if !errors.Is(err, database.ErrDuplicate) || attempt == generateAttempts {
			return nil, fmt.Errorf("save invitation: %w", err)
		}
		s.log.With(slog.Int("attempt", attempt)).Warn("invitation code collision")
	}

	metrics.RecordInvitationCreated(string(inv.Scope))
	s.log.With(
		slog.String("scope", string(inv.Scope)),
		slog.String("target_id", inv.TargetId),
		slog.Int("max_uses", inv.MaxUses),
		sl.Secret("code", inv.Code),
	).Info("invitation created")
	return inv, nil
}

// List returns the codes of one company or group with their derived state.
func (s *Service) List(ctx context.Context, actor *entity.User, scope entity.Scope, targetId string) ([]*entity.InvitationWithDetails, error) {
	name, err := s.authorize(ctx, actor, scope, targetId)
	if err != nil {
		return nil, err
	}
	codes, err := s.db.ListInvitations(ctx, scope, targetId)
	if err != nil {
		return nil, err
	}
	now := s.now()
	list := make([]*entity.InvitationWithDetails, 0, len(codes))
	for _, code := range codes {
		list = append(list, &entity.InvitationWithDetails{
			InvitationCode: *code,
			RemainingUses:  code.RemainingUses(),
			IsUsable:       code.Usable(now),
			TargetName:     name,
		})
	}
	return list, nil
}

// Deactivate revokes a code of the given scope. Revoking an inactive code
// succeeds without change.
func (s *Service) Deactivate(ctx context.Context, actor *entity.User, scope entity.Scope, id string) (*entity.InvitationCode, error) {
	inv, err := s.db.InvitationById(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.Scope != scope {
		return nil, entity.Fail(entity.ReasonNotFound, "invitation not found")
	}
	if _, err = s.authorize(ctx, actor, inv.Scope, inv.TargetId); err != nil {
		return nil, err
	}
	if !inv.IsActive {
		return inv, nil
	}
	if err = s.db.DeactivateInvitation(ctx, inv.Id); err != nil {
		return nil, err
	}
	inv.IsActive = false
	s.log.With(
		slog.String("id", inv.Id),
		slog.String("actor", actor.Id),
	).Info("invitation deactivated")
	return inv, nil
}

// authorize checks that actor manages the target and returns its name.
func (s *Service) authorize(ctx context.Context, actor *entity.User, scope entity.Scope, targetId string) (string, error) {
	if actor == nil {
		return "", entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	switch scope {
	case entity.ScopeCompany:
		company, err := s.db.CompanyById(ctx, targetId)
		if err != nil {
			return "", err
		}
		if company == nil {
			return "", entity.Fail(entity.ReasonNotFound, "company not found")
		}
		if !actor.Manages(company.Id) {
			return "", entity.Fail(entity.ReasonForbidden, "not allowed to manage invitations of this company")
		}
		return company.CompanyName, nil
	case entity.ScopeGroup:
		group, err := s.db.GroupById(ctx, targetId)
		if err != nil {
			return "", err
		}
		if group == nil {
			return "", entity.Fail(entity.ReasonNotFound, "group not found")
		}
		if !actor.Manages(group.CompanyId) {
			return "", entity.Fail(entity.ReasonForbidden, "not allowed to manage invitations of this group")
		}
		return group.Name, nil
	}
	return "", entity.Fail(entity.ReasonValidation, "unknown scope %q", scope)
}
