package group_test

import (
	"context"
	"testing"

	"courseadmin/entity"
	"courseadmin/impl/capacity"
	"courseadmin/impl/group"
	"courseadmin/internal/database"
	"courseadmin/internal/database/dbtest"
	"courseadmin/lib/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*group.Service, *database.SqlStore) {
	store := dbtest.New(t)
	return group.New(store, capacity.New(store), clock.Fixed(dbtest.Now), dbtest.Log()), store
}

func TestCreateDefaultsToDraft(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	manager := dbtest.User(t, store, entity.RoleManager, company.Id)

	view, err := svc.Create(ctx, manager, &entity.CreateGroup{Name: "Evening", CompanyId: company.Id, MaxParticipants: 12})
	require.NoError(t, err)
	assert.Equal(t, entity.GroupDraft, view.Status)
	assert.Equal(t, entity.GroupDraft, view.EffectiveStatus)
	assert.False(t, view.RegistrationOpen)
	assert.Equal(t, 12, view.Capacity.AvailableSpots)
	assert.Equal(t, "Acme", view.CompanyName)

	loaded, err := svc.Get(ctx, view.Id)
	require.NoError(t, err)
	assert.Equal(t, "Evening", loaded.Name)
}

func TestCreateRules(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	pending := dbtest.Company(t, store, "Pending", entity.CompanyPending)
	manager := dbtest.User(t, store, entity.RoleManager, company.Id)
	admin := dbtest.User(t, store, entity.RoleAdmin, "")

	_, err := svc.Create(ctx, manager, &entity.CreateGroup{Name: "Solo", MaxParticipants: 5})
	assert.Equal(t, entity.ReasonForbidden, entity.ReasonOf(err), "standalone groups are admin only")

	_, err = svc.Create(ctx, manager, &entity.CreateGroup{Name: "Other", CompanyId: pending.Id, MaxParticipants: 5})
	assert.Equal(t, entity.ReasonForbidden, entity.ReasonOf(err))

	_, err = svc.Create(ctx, admin, &entity.CreateGroup{Name: "Pending", CompanyId: pending.Id, MaxParticipants: 5})
	assert.Equal(t, entity.ReasonValidation, entity.ReasonOf(err))

	_, err = svc.Create(ctx, admin, &entity.CreateGroup{Name: "Full", MaxParticipants: 5, Status: entity.GroupFull})
	assert.Equal(t, entity.ReasonValidation, entity.ReasonOf(err))

	view, err := svc.Create(ctx, admin, &entity.CreateGroup{Name: "Open", MaxParticipants: 5, Status: entity.GroupActive})
	require.NoError(t, err)
	assert.True(t, view.RegistrationOpen)
}

func TestSetStatus(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	admin := dbtest.User(t, store, entity.RoleAdmin, "")
	stranger := dbtest.User(t, store, entity.RoleManager, "c-other")
	g := dbtest.Group(t, store, "", 2, entity.GroupDraft)

	view, err := svc.SetStatus(ctx, admin, g.Id, entity.GroupActive)
	require.NoError(t, err)
	assert.Equal(t, entity.GroupActive, view.Status)
	assert.True(t, view.RegistrationOpen)

	dbtest.Fill(t, store, g.Id, 2)
	view, err = svc.Get(ctx, g.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.GroupFull, view.EffectiveStatus)

	_, err = svc.SetStatus(ctx, admin, g.Id, entity.GroupFull)
	assert.Equal(t, entity.ReasonValidation, entity.ReasonOf(err), "full is derived")

	_, err = svc.SetStatus(ctx, stranger, g.Id, entity.GroupClosed)
	assert.Equal(t, entity.ReasonForbidden, entity.ReasonOf(err))

	_, err = svc.SetStatus(ctx, admin, "missing", entity.GroupClosed)
	assert.Equal(t, entity.ReasonNotFound, entity.ReasonOf(err))
}

func TestRemoveMember(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	manager := dbtest.User(t, store, entity.RoleManager, company.Id)
	stranger := dbtest.User(t, store, entity.RoleManager, "c-other")
	g := dbtest.Group(t, store, company.Id, 1, entity.GroupActive)
	member := dbtest.User(t, store, entity.RoleUser, "")
	require.NoError(t, store.AddGroupMember(ctx, &entity.GroupMembership{
		GroupId: g.Id, UserId: member.Id, InvitationId: "inv-1", JoinedAt: dbtest.Now,
	}))

	_, err := svc.RemoveMember(ctx, stranger, g.Id, member.Id)
	assert.Equal(t, entity.ReasonForbidden, entity.ReasonOf(err))

	view, err := svc.RemoveMember(ctx, manager, g.Id, member.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, view.Capacity.CurrentParticipants)
	assert.True(t, view.RegistrationOpen, "the spot is free again")

	_, err = svc.RemoveMember(ctx, manager, g.Id, member.Id)
	assert.Equal(t, entity.ReasonNotFound, entity.ReasonOf(err))

	_, err = svc.RemoveMember(ctx, nil, g.Id, member.Id)
	assert.Equal(t, entity.ReasonAuthRequired, entity.ReasonOf(err))
}
