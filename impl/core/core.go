package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"courseadmin/entity"
	"courseadmin/impl/auth"
	"courseadmin/impl/capacity"
	"courseadmin/impl/company"
	"courseadmin/impl/enrollment"
	"courseadmin/impl/group"
	"courseadmin/impl/invitation"
	"courseadmin/internal/database"
	"courseadmin/lib/clock"
	"courseadmin/lib/sl"
)

const auditLimit = 100

// Notifier tells admins about company registrations and decisions.
type Notifier interface {
	CompanyRegistered(company *entity.Company)
	CompanyReviewed(decision *entity.Decision)
}

type AuditLog interface {
	SaveEvent(event *entity.AuditEvent) error
	EventsBySubject(subjectId string, limit int64) ([]*entity.AuditEvent, error)
}

type Config struct {
	JwtSecret string
	TokenTTL  time.Duration
	Now       clock.Func
}

// Core is the single entry point of the HTTP handlers and the bot.
type Core struct {
	auth      *auth.Auth
	invites   *invitation.Service
	capacity  *capacity.Tracker
	linker    *enrollment.Linker
	companies *company.Service
	groups    *group.Service
	audit     AuditLog
	notifier  Notifier
	log       *slog.Logger
}

func New(store *database.SqlStore, conf Config, log *slog.Logger) *Core {
	if store == nil {
		panic("store is nil")
	}
	tracker := capacity.New(store)
	return &Core{
		auth:      auth.New(store, conf.JwtSecret, conf.TokenTTL, conf.Now),
		invites:   invitation.New(store, tracker, conf.Now, log),
		capacity:  tracker,
		linker:    enrollment.New(store, conf.Now, log),
		companies: company.New(store, conf.Now, log),
		groups:    group.New(store, tracker, conf.Now, log),
		log:       log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuditLog(audit AuditLog) {
	c.audit = audit
}

func (c *Core) SetNotifier(notifier Notifier) {
	c.notifier = notifier
}

func (c *Core) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	return c.auth.EnsureAdmin(ctx, email, password)
}

func (c *Core) AuthenticateByToken(ctx context.Context, token string) (*entity.User, error) {
	return c.auth.UserByToken(ctx, token)
}

func (c *Core) Login(ctx context.Context, req *entity.Login) (*entity.Token, error) {
	return c.auth.Login(ctx, req.Email, req.Password)
}

// RegisterUser creates an account, optionally linking it through an
// invitation code. The account is not created if the code cannot be used.
func (c *Core) RegisterUser(ctx context.Context, req *entity.Register) (*entity.Redemption, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         entity.RoleUser,
	}
	red, err := c.linker.Register(ctx, user, req.InvitationCode)
	if err != nil {
		return red, err
	}
	c.record(entity.EventUserRegistered, user.Id, user.Id, map[string]string{
		"email":         user.Email,
		"invitation_id": red.InvitationId,
	})
	if red.InvitationId != "" {
		c.recordRedemption(red)
	}
	return red, nil
}

func (c *Core) CheckCompanyInvitation(ctx context.Context, code string) (*entity.CompanyInvitationCheck, error) {
	result, err := c.invites.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	check := &entity.CompanyInvitationCheck{
		IsValid: result.Valid,
		Reason:  result.Reason,
		Message: result.Message,
	}
	if result.Valid && result.Code.Scope != entity.ScopeCompany {
		check.IsValid = false
		check.Reason = entity.ReasonNotFound
		check.Message = "This is not a company invitation code"
		return check, nil
	}
	if result.Target != nil {
		check.CompanyName = result.Target.Name
		check.CompanyId = result.Target.TargetId
	}
	return check, nil
}

func (c *Core) ValidateGroupInvitation(ctx context.Context, code string) (*entity.GroupInvitationCheck, error) {
	result, err := c.invites.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	check := &entity.GroupInvitationCheck{
		Valid:   result.Valid,
		Reason:  result.Reason,
		Message: result.Message,
	}
	if !result.Valid {
		return check, nil
	}
	if result.Code.Scope != entity.ScopeGroup {
		check.Valid = false
		check.Reason = entity.ReasonNotFound
		check.Message = "This is not a group invitation code"
		return check, nil
	}
	view, err := c.capacity.View(ctx, result.Target.TargetId)
	if err != nil {
		return nil, err
	}
	check.Group = view
	check.RemainingUses = result.RemainingUses
	expires := result.ExpiresAt
	check.ExpiresAt = &expires
	if !view.RegistrationOpen {
		// the code itself is usable but redemption would fail now
		check.Valid = false
		if view.Status != entity.GroupActive {
			check.Reason = entity.ReasonGroupClosed
			check.Message = "Group is not open for registration"
		} else {
			check.Reason = entity.ReasonCapacityExceeded
			check.Message = "Group has reached its maximum number of participants"
		}
	}
	return check, nil
}

func (c *Core) UseInvitation(ctx context.Context, req *entity.UseInvitation) (*entity.Redemption, error) {
	red, err := c.linker.Redeem(ctx, entity.ScopeGroup, req.InvitationCode, req.UserId)
	if err != nil {
		c.record(entity.EventRedemptionRejected, req.UserId, red.InvitationId, map[string]string{
			"reason": string(red.Error),
		})
		return red, err
	}
	c.recordRedemption(red)
	return red, nil
}

func (c *Core) CreateInvitation(ctx context.Context, actor *entity.User, req *entity.CreateInvitation) (*entity.InvitationCode, error) {
	inv, err := c.invites.Create(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventInvitationCreated, actor.Id, inv.Id, map[string]string{
		"scope":     string(inv.Scope),
		"target_id": inv.TargetId,
		"max_uses":  fmt.Sprint(inv.MaxUses),
	})
	return inv, nil
}

func (c *Core) ListInvitations(ctx context.Context, actor *entity.User, scope entity.Scope, targetId string) ([]*entity.InvitationWithDetails, error) {
	return c.invites.List(ctx, actor, scope, targetId)
}

// DeactivateInvitation revokes a code of the given scope; a code of another
// scope is reported as not found.
func (c *Core) DeactivateInvitation(ctx context.Context, actor *entity.User, scope entity.Scope, id string) (*entity.InvitationCode, error) {
	inv, err := c.invites.Deactivate(ctx, actor, scope, id)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventInvitationDeactivated, actor.Id, inv.Id, nil)
	return inv, nil
}

func (c *Core) GroupCapacity(ctx context.Context, groupId string) (*entity.Capacity, error) {
	return c.capacity.GetCapacity(ctx, groupId)
}

func (c *Core) CreateGroup(ctx context.Context, actor *entity.User, req *entity.CreateGroup) (*entity.GroupView, error) {
	view, err := c.groups.Create(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventGroupCreated, actor.Id, view.Id, map[string]string{
		"company_id": view.CompanyId,
	})
	return view, nil
}

func (c *Core) GetGroup(ctx context.Context, id string) (*entity.GroupView, error) {
	return c.groups.Get(ctx, id)
}

func (c *Core) SetGroupStatus(ctx context.Context, actor *entity.User, id string, status entity.GroupStatus) (*entity.GroupView, error) {
	view, err := c.groups.SetStatus(ctx, actor, id, status)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventGroupStatus, actor.Id, view.Id, map[string]string{
		"status": string(view.Status),
	})
	return view, nil
}

func (c *Core) RemoveGroupMember(ctx context.Context, actor *entity.User, groupId, userId string) (*entity.GroupView, error) {
	view, err := c.groups.RemoveMember(ctx, actor, groupId, userId)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventMemberRemoved, actor.Id, view.Id, map[string]string{
		"user_id": userId,
	})
	return view, nil
}

func (c *Core) RegisterCompany(ctx context.Context, req *entity.RegisterCompany) (*entity.Company, error) {
	registered, err := c.companies.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventCompanyRegistered, "", registered.Id, map[string]string{
		"tax_number": registered.TaxNumber,
	})
	if c.notifier != nil {
		go c.notifier.CompanyRegistered(registered)
	}
	return registered, nil
}

func (c *Core) GetCompany(ctx context.Context, id string) (*entity.Company, error) {
	return c.companies.Get(ctx, id)
}

func (c *Core) PendingCompanies(ctx context.Context, actor *entity.User) ([]*entity.Company, error) {
	return c.companies.ListPending(ctx, actor)
}

func (c *Core) AssignRole(ctx context.Context, actor *entity.User, userId string, req *entity.AssignRole) (*entity.User, error) {
	user, err := c.companies.AssignRole(ctx, actor, userId, req)
	if err != nil {
		return nil, err
	}
	c.record(entity.EventRoleAssigned, actor.Id, user.Id, map[string]string{
		"role":       string(user.Role),
		"company_id": user.CompanyId,
	})
	return user, nil
}

func (c *Core) ApproveCompany(ctx context.Context, actor *entity.User, id string) (*entity.Decision, error) {
	decision, err := c.companies.Approve(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	c.reviewed(entity.EventCompanyApproved, actor, decision)
	return decision, nil
}

func (c *Core) RejectCompany(ctx context.Context, actor *entity.User, id, reason string) (*entity.Decision, error) {
	decision, err := c.companies.Reject(ctx, actor, id, reason)
	if err != nil {
		return nil, err
	}
	c.reviewed(entity.EventCompanyRejected, actor, decision)
	return decision, nil
}

// AuditTrail returns the newest events about one subject. It needs the
// audit store to be configured.
func (c *Core) AuditTrail(_ context.Context, actor *entity.User, subjectId string) ([]*entity.AuditEvent, error) {
	if actor == nil {
		return nil, entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	if !actor.IsAdmin() {
		return nil, entity.Fail(entity.ReasonForbidden, "admin access required")
	}
	if c.audit == nil {
		return nil, fmt.Errorf("audit log not connected")
	}
	events, err := c.audit.EventsBySubject(subjectId, auditLimit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*entity.AuditEvent{}
	}
	return events, nil
}

func (c *Core) reviewed(kind string, actor *entity.User, decision *entity.Decision) {
	if !decision.Changed {
		return
	}
	c.record(kind, actor.Id, decision.Company.Id, map[string]string{
		"reason": decision.Company.RejectionReason,
	})
	if c.notifier != nil {
		go c.notifier.CompanyReviewed(decision)
	}
}

func (c *Core) recordRedemption(red *entity.Redemption) {
	c.record(entity.EventRedemption, red.UserId, red.InvitationId, map[string]string{
		"scope":      string(red.Scope),
		"group_id":   red.GroupId,
		"company_id": red.CompanyId,
	})
}

// record writes an audit event in the background; a failed write is logged
// and never fails the operation.
func (c *Core) record(kind, actorId, subjectId string, details map[string]string) {
	if c.audit == nil || subjectId == "" {
		return
	}
	event := entity.NewEvent(kind, actorId, subjectId, details)
	go func() {
		if err := c.audit.SaveEvent(event); err != nil {
			c.log.With(
				slog.String("kind", kind),
				slog.String("subject_id", subjectId),
			).Error("save audit event", sl.Err(err))
		}
	}()
}
