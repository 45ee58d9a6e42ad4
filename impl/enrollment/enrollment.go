// Package enrollment consumes invitation codes and links users to the
// company or group behind them.
//
// A redemption is one store transaction:
//
//	lock code -> re-check usability -> (group) lock group, check status,
//	membership and capacity -> conditional increment -> insert memberships
//
// Failures before the increment leave nothing to roll back; failures after it
// roll the increment back with the transaction, so a use is never consumed
// without a membership.
package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"courseadmin/entity"
	"courseadmin/impl/capacity"
	"courseadmin/impl/invitation"
	"courseadmin/internal/database"
	"courseadmin/internal/metrics"
	"courseadmin/lib/clock"
	"courseadmin/lib/sl"

	"github.com/google/uuid"
)

type Store interface {
	InTx(ctx context.Context, fn func(q database.Queries) error) error
}

type Linker struct {
	store Store
	now   clock.Func
	log   *slog.Logger
}

func New(store Store, now clock.Func, log *slog.Logger) *Linker {
	if now == nil {
		now = clock.System
	}
	return &Linker{
		store: store,
		now:   now,
		log:   log.With(sl.Module("enrollment")),
	}
}

// Redeem consumes one use of code for an existing user. A non-empty scope
// restricts the codes accepted; a code of another scope is NotFound. The
// returned Redemption is never nil; on failure it is in the rejected state
// and err carries the reason.
func (l *Linker) Redeem(ctx context.Context, scope entity.Scope, code, userId string) (*entity.Redemption, error) {
	started := time.Now()
	red := &entity.Redemption{State: entity.StatePending, UserId: userId}

	err := l.store.InTx(ctx, func(q database.Queries) error {
		if userId == "" {
			return entity.Fail(entity.ReasonValidation, "user id is required")
		}
		user, err := q.UserById(ctx, userId)
		if err != nil {
			return err
		}
		if user == nil {
			return entity.Fail(entity.ReasonNotFound, "user not found")
		}
		return l.redeem(ctx, q, scope, code, user, red)
	})
	l.finish(red, err, started)
	return red, err
}

// Register creates the user and, when a code is given, redeems it in the same
// transaction. If the redemption fails the user is not created.
func (l *Linker) Register(ctx context.Context, user *entity.User, code string) (*entity.Redemption, error) {
	started := time.Now()
	code = entity.NormalizeCode(code)
	red := &entity.Redemption{State: entity.StatePending}

	if user.Id == "" {
		user.Id = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = entity.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = l.now()
	}
	red.UserId = user.Id

	err := l.store.InTx(ctx, func(q database.Queries) error {
		err := q.CreateUser(ctx, user)
		if errors.Is(err, database.ErrDuplicate) {
			return entity.Fail(entity.ReasonValidation, "user with this email already exists")
		}
		if err != nil {
			return err
		}
		if code == "" {
			return nil
		}
		return l.redeem(ctx, q, "", code, user, red)
	})
	if code == "" {
		if err != nil {
			red.State = entity.StateRejected
			red.Error = entity.ReasonOf(err)
			red.Message = err.Error()
			return red, err
		}
		red.Success = true
		red.State = entity.StateLinked
		red.Message = "Registration completed"
		return red, nil
	}
	l.finish(red, err, started)
	if err == nil && red.CompanyId != "" && user.CompanyId == "" {
		user.CompanyId = red.CompanyId
	}
	return red, err
}

func (l *Linker) redeem(ctx context.Context, q database.Queries, scope entity.Scope, code string, user *entity.User, red *entity.Redemption) error {
	normalized := entity.NormalizeCode(code)
	if normalized == "" {
		return entity.Fail(entity.ReasonValidation, "invitation code is required")
	}
	now := l.now()

	inv, err := q.InvitationByCodeForUpdate(ctx, normalized)
	if err != nil {
		return err
	}
	if inv != nil && scope != "" && inv.Scope != scope {
		return entity.Fail(entity.ReasonNotFound, "This is not a %s invitation code", scope)
	}
	if err = invitation.Check(inv, now); err != nil {
		return err
	}
	red.InvitationId = inv.Id
	red.Scope = inv.Scope

	switch inv.Scope {
	case entity.ScopeGroup:
		group, err := q.GroupByIdForUpdate(ctx, inv.TargetId)
		if err != nil {
			return err
		}
		if group == nil {
			return entity.Fail(entity.ReasonNotFound, "group not found")
		}
		if group.Status != entity.GroupActive {
			return entity.Fail(entity.ReasonGroupClosed, "Group is not open for registration")
		}
		member, err := q.GroupMember(ctx, group.Id, user.Id)
		if err != nil {
			return err
		}
		if member != nil && member.Status == entity.MembershipActive {
			return entity.Fail(entity.ReasonAlreadyMember, "User is already a member of this group")
		}
		c, err := capacity.Of(ctx, q, group)
		if err != nil {
			return err
		}
		if !c.HasCapacity {
			return entity.Fail(entity.ReasonCapacityExceeded, "Group has reached its maximum number of participants")
		}
		red.GroupId = group.Id
		red.CompanyId = group.CompanyId
	case entity.ScopeCompany:
		company, err := q.CompanyById(ctx, inv.TargetId)
		if err != nil {
			return err
		}
		if company == nil {
			return entity.Fail(entity.ReasonNotFound, "company not found")
		}
		if company.Status != entity.CompanyActive {
			return entity.Fail(entity.ReasonDeactivated, "Company of this invitation is not active")
		}
		member, err := q.CompanyMember(ctx, company.Id, user.Id)
		if err != nil {
			return err
		}
		if member != nil {
			return entity.Fail(entity.ReasonAlreadyMember, "User is already a member of this company")
		}
		red.CompanyId = company.Id
	default:
		return entity.Fail(entity.ReasonUnknown, "invitation has unknown scope %q", inv.Scope)
	}
	red.State = entity.StateValidated

	ok, err := q.IncrementInvitationUses(ctx, inv.Id, now)
	if err != nil {
		return err
	}
	if !ok {
		return entity.Fail(entity.ReasonUsageLimitReached, "Invitation code usage limit reached")
	}

	if red.GroupId != "" {
		err = q.AddGroupMember(ctx, &entity.GroupMembership{
			GroupId:      red.GroupId,
			UserId:       user.Id,
			Status:       entity.MembershipActive,
			InvitationId: inv.Id,
			JoinedAt:     now,
		})
		if errors.Is(err, database.ErrDuplicate) {
			return entity.Fail(entity.ReasonAlreadyMember, "User is already a member of this group")
		}
		if err != nil {
			return err
		}
	}
	if red.CompanyId != "" {
		if err = q.AddCompanyMember(ctx, &entity.CompanyMembership{
			CompanyId: red.CompanyId,
			UserId:    user.Id,
			JoinedAt:  now,
		}); err != nil {
			return err
		}
		if err = q.SetUserCompanyIfEmpty(ctx, user.Id, red.CompanyId); err != nil {
			return err
		}
	}
	return nil
}

func (l *Linker) finish(red *entity.Redemption, err error, started time.Time) {
	logger := l.log.With(
		slog.String("user_id", red.UserId),
		slog.String("invitation_id", red.InvitationId),
		slog.String("scope", string(red.Scope)),
	)
	if err != nil {
		red.Success = false
		red.State = entity.StateRejected
		red.Error = entity.ReasonOf(err)
		red.Message = err.Error()
		red.GroupId = ""
		red.CompanyId = ""
		metrics.RecordRedemption(string(red.Scope), string(red.Error), time.Since(started))
		logger.With(sl.Reason(err)).Warn("redemption rejected", sl.Err(err))
		return
	}
	red.Success = true
	red.State = entity.StateLinked
	switch red.Scope {
	case entity.ScopeGroup:
		red.Message = "You have been added to the group"
	default:
		red.Message = "You have been linked to the company"
	}
	metrics.RecordRedemption(string(red.Scope), "", time.Since(started))
	logger.With(
		slog.String("group_id", red.GroupId),
		slog.String("company_id", red.CompanyId),
	).Info("invitation redeemed")
}
