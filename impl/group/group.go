package group

import (
	"context"
	"log/slog"

	"courseadmin/entity"
	"courseadmin/lib/clock"
	"courseadmin/lib/sl"

	"github.com/google/uuid"
)

type Database interface {
	CreateGroup(ctx context.Context, group *entity.Group) error
	GroupById(ctx context.Context, id string) (*entity.Group, error)
	SetGroupStatus(ctx context.Context, id string, status entity.GroupStatus) error
	RemoveGroupMember(ctx context.Context, groupId, userId string) (bool, error)
	CompanyById(ctx context.Context, id string) (*entity.Company, error)
}

type Viewer interface {
	ViewOf(ctx context.Context, group *entity.Group) (*entity.GroupView, error)
}

type Service struct {
	db     Database
	viewer Viewer
	now    clock.Func
	log    *slog.Logger
}

func New(db Database, viewer Viewer, now clock.Func, log *slog.Logger) *Service {
	if now == nil {
		now = clock.System
	}
	return &Service{
		db:     db,
		viewer: viewer,
		now:    now,
		log:    log.With(sl.Module("group")),
	}
}

// Create adds a group. A company-linked group requires an active company the
// actor manages; standalone groups are admin only.
func (s *Service) Create(ctx context.Context, actor *entity.User, req *entity.CreateGroup) (*entity.GroupView, error) {
	if actor == nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	if req.CompanyId == "" && !actor.IsAdmin() {
		return nil, entity.Fail(entity.ReasonForbidden, "only admins can create standalone groups")
	}
	if req.CompanyId != "" {
		company, err := s.db.CompanyById(ctx, req.CompanyId)
		if err != nil {
			return nil, err
		}
		if company == nil {
			return nil, entity.Fail(entity.ReasonNotFound, "company not found")
		}
		if !actor.Manages(company.Id) {
			return nil, entity.Fail(entity.ReasonForbidden, "not allowed to manage groups of this company")
		}
		if company.Status != entity.CompanyActive {
			return nil, entity.Fail(entity.ReasonValidation, "company is not active")
		}
	}
	status := req.Status
	if status == "" {
		status = entity.GroupDraft
	}
	if !status.StoredStatus() {
		return nil, entity.Fail(entity.ReasonValidation, "status %s cannot be set", status)
	}

	group := &entity.Group{
		Id:              uuid.NewString(),
		Name:            req.Name,
		CompanyId:       req.CompanyId,
		MaxParticipants: req.MaxParticipants,
		Status:          status,
		CreatedBy:       actor.Id,
		CreatedAt:       s.now(),
	}
	if err := s.db.CreateGroup(ctx, group); err != nil {
		return nil, err
	}
	s.log.With(
		slog.String("group_id", group.Id),
		slog.String("company_id", group.CompanyId),
		slog.Int("max_participants", group.MaxParticipants),
	).Info("group created")
	return s.viewer.ViewOf(ctx, group)
}

func (s *Service) Get(ctx context.Context, id string) (*entity.GroupView, error) {
	group, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.viewer.ViewOf(ctx, group)
}

// SetStatus changes the stored status. "full" is derived from capacity and is
// rejected here.
func (s *Service) SetStatus(ctx context.Context, actor *entity.User, id string, status entity.GroupStatus) (*entity.GroupView, error) {
	if actor == nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	if !status.StoredStatus() {
		return nil, entity.Fail(entity.ReasonValidation, "status %s cannot be set", status)
	}
	group, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Manages(group.CompanyId) {
		return nil, entity.Fail(entity.ReasonForbidden, "not allowed to manage this group")
	}
	if group.Status != status {
		if err = s.db.SetGroupStatus(ctx, group.Id, status); err != nil {
			return nil, err
		}
		s.log.With(
			slog.String("group_id", group.Id),
			slog.String("from", string(group.Status)),
			slog.String("to", string(status)),
		).Info("group status changed")
		group.Status = status
	}
	return s.viewer.ViewOf(ctx, group)
}

// RemoveMember ends an active membership and frees its spot. The user may
// join again later with a new code.
func (s *Service) RemoveMember(ctx context.Context, actor *entity.User, groupId, userId string) (*entity.GroupView, error) {
	if actor == nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	group, err := s.find(ctx, groupId)
	if err != nil {
		return nil, err
	}
	if !actor.Manages(group.CompanyId) {
		return nil, entity.Fail(entity.ReasonForbidden, "not allowed to manage this group")
	}
	removed, err := s.db.RemoveGroupMember(ctx, group.Id, userId)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, entity.Fail(entity.ReasonNotFound, "user is not a member of this group")
	}
	s.log.With(
		slog.String("group_id", group.Id),
		slog.String("user_id", userId),
	).Info("group member removed")
	return s.viewer.ViewOf(ctx, group)
}

func (s *Service) find(ctx context.Context, id string) (*entity.Group, error) {
	group, err := s.db.GroupById(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, entity.Fail(entity.ReasonNotFound, "group not found")
	}
	return group, nil
}
