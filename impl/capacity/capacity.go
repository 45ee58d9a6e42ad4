// Package capacity computes group participant counts from membership rows.
// Nothing here trusts a cached counter: every call counts active members.
package capacity

import (
	"context"
	"fmt"

	"courseadmin/entity"
)

// Counter is the one query capacity needs. It is implemented by the store and
// by its transaction handle, so the same arithmetic runs inside redemption.
type Counter interface {
	CountActiveMembers(ctx context.Context, groupId string) (int, error)
}

type Database interface {
	Counter
	GroupById(ctx context.Context, id string) (*entity.Group, error)
	CompanyById(ctx context.Context, id string) (*entity.Company, error)
}

type Tracker struct {
	db Database
}

func New(db Database) *Tracker {
	return &Tracker{db: db}
}

// Of counts the group's active members and returns its capacity.
func Of(ctx context.Context, counter Counter, group *entity.Group) (entity.Capacity, error) {
	current, err := counter.CountActiveMembers(ctx, group.Id)
	if err != nil {
		return entity.Capacity{}, fmt.Errorf("count members: %w", err)
	}
	return entity.NewCapacity(group.MaxParticipants, current), nil
}

func (t *Tracker) GetCapacity(ctx context.Context, groupId string) (*entity.Capacity, error) {
	group, err := t.group(ctx, groupId)
	if err != nil {
		return nil, err
	}
	c, err := Of(ctx, t.db, group)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *Tracker) HasCapacity(ctx context.Context, groupId string) (bool, error) {
	c, err := t.GetCapacity(ctx, groupId)
	if err != nil {
		return false, err
	}
	return c.HasCapacity, nil
}

// View loads the group with its capacity, derived status and company name.
func (t *Tracker) View(ctx context.Context, groupId string) (*entity.GroupView, error) {
	group, err := t.group(ctx, groupId)
	if err != nil {
		return nil, err
	}
	return t.ViewOf(ctx, group)
}

func (t *Tracker) ViewOf(ctx context.Context, group *entity.Group) (*entity.GroupView, error) {
	c, err := Of(ctx, t.db, group)
	if err != nil {
		return nil, err
	}
	view := &entity.GroupView{
		Group:            *group,
		EffectiveStatus:  EffectiveStatus(group, c),
		RegistrationOpen: RegistrationOpen(group, c),
		Capacity:         c,
	}
	if group.CompanyId != "" {
		company, err := t.db.CompanyById(ctx, group.CompanyId)
		if err != nil {
			return nil, err
		}
		if company != nil {
			view.CompanyName = company.CompanyName
		}
	}
	return view, nil
}

func (t *Tracker) group(ctx context.Context, groupId string) (*entity.Group, error) {
	if groupId == "" {
		return nil, entity.Fail(entity.ReasonValidation, "group id is required")
	}
	group, err := t.db.GroupById(ctx, groupId)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, entity.Fail(entity.ReasonNotFound, "group not found")
	}
	return group, nil
}

// EffectiveStatus is the status shown to clients. "full" is never stored:
// an active group without free spots reports it.
func EffectiveStatus(group *entity.Group, c entity.Capacity) entity.GroupStatus {
	if group.Status == entity.GroupActive && !c.HasCapacity {
		return entity.GroupFull
	}
	return group.Status
}

func RegistrationOpen(group *entity.Group, c entity.Capacity) bool {
	return group.Status == entity.GroupActive && c.HasCapacity
}
