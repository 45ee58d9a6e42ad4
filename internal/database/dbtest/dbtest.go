// Package dbtest builds in-memory stores with fixture rows for tests.
package dbtest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"courseadmin/entity"
	"courseadmin/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Now is the fixed instant fixtures are created at.
var Now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// Log discards everything.
func Log() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func New(t testing.TB) *database.SqlStore {
	t.Helper()
	store, err := database.OpenSQLite(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func Company(t testing.TB, store *database.SqlStore, name string, status entity.CompanyStatus) *entity.Company {
	t.Helper()
	company := &entity.Company{
		Id:           uuid.NewString(),
		CompanyName:  name,
		TaxNumber:    "TX" + uuid.NewString()[:8],
		Status:       status,
		ContactName:  "Contact",
		ContactEmail: "contact@example.com",
		CreatedAt:    Now,
	}
	require.NoError(t, store.CreateCompany(context.Background(), company))
	return company
}

func Group(t testing.TB, store *database.SqlStore, companyId string, maxParticipants int, status entity.GroupStatus) *entity.Group {
	t.Helper()
	group := &entity.Group{
		Id:              uuid.NewString(),
		Name:            "Group " + uuid.NewString()[:4],
		CompanyId:       companyId,
		MaxParticipants: maxParticipants,
		Status:          status,
		CreatedBy:       "admin",
		CreatedAt:       Now,
	}
	require.NoError(t, store.CreateGroup(context.Background(), group))
	return group
}

func User(t testing.TB, store *database.SqlStore, role entity.Role, companyId string) *entity.User {
	t.Helper()
	id := uuid.NewString()
	user := &entity.User{
		Id:        id,
		Email:     id[:8] + "@example.com",
		Name:      "User " + id[:4],
		Role:      role,
		CompanyId: companyId,
		CreatedAt: Now,
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

// Code inserts an invitation code as is, without going through the service.
func Code(t testing.TB, store *database.SqlStore, code string, scope entity.Scope, targetId string, maxUses, currentUses int, expiresAt time.Time) *entity.InvitationCode {
	t.Helper()
	inv := &entity.InvitationCode{
		Id:          uuid.NewString(),
		Code:        code,
		Scope:       scope,
		TargetId:    targetId,
		MaxUses:     maxUses,
		CurrentUses: currentUses,
		ExpiresAt:   expiresAt,
		IsActive:    true,
		CreatedBy:   "admin",
		CreatedAt:   Now,
	}
	require.NoError(t, store.CreateInvitation(context.Background(), inv))
	return inv
}

// Fill adds n active members to a group.
func Fill(t testing.TB, store *database.SqlStore, groupId string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		user := User(t, store, entity.RoleUser, "")
		require.NoError(t, store.AddGroupMember(ctx, &entity.GroupMembership{
			GroupId:      groupId,
			UserId:       user.Id,
			Status:       entity.MembershipActive,
			InvitationId: fmt.Sprintf("seed-%d", i),
			JoinedAt:     Now,
		}))
	}
}

func Uses(t testing.TB, store *database.SqlStore, id string) int {
	t.Helper()
	inv, err := store.InvitationById(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv.CurrentUses
}
