package database

import (
	"context"
	"time"

	"courseadmin/entity"
)

// Queries is the store API shared by autocommit calls on *SqlStore and by
// the transaction handle passed to InTx. Lookups return (nil, nil) when the
// row does not exist.
type Queries interface {
	CreateInvitation(ctx context.Context, code *entity.InvitationCode) error
	InvitationByCode(ctx context.Context, code string) (*entity.InvitationCode, error)
	// InvitationByCodeForUpdate locks the row until the transaction ends.
	InvitationByCodeForUpdate(ctx context.Context, code string) (*entity.InvitationCode, error)
	InvitationById(ctx context.Context, id string) (*entity.InvitationCode, error)
	ListInvitations(ctx context.Context, scope entity.Scope, targetId string) ([]*entity.InvitationCode, error)
	DeactivateInvitation(ctx context.Context, id string) error
	// IncrementInvitationUses adds one use only if the code is still usable
	// at now; it reports false when no row was updated.
	IncrementInvitationUses(ctx context.Context, id string, now time.Time) (bool, error)

	CreateGroup(ctx context.Context, group *entity.Group) error
	GroupById(ctx context.Context, id string) (*entity.Group, error)
	GroupByIdForUpdate(ctx context.Context, id string) (*entity.Group, error)
	SetGroupStatus(ctx context.Context, id string, status entity.GroupStatus) error
	CountActiveMembers(ctx context.Context, groupId string) (int, error)
	GroupMember(ctx context.Context, groupId, userId string) (*entity.GroupMembership, error)
	AddGroupMember(ctx context.Context, member *entity.GroupMembership) error
	// RemoveGroupMember marks an active membership removed; it reports false
	// when the user was not an active member.
	RemoveGroupMember(ctx context.Context, groupId, userId string) (bool, error)
	AddCompanyMember(ctx context.Context, member *entity.CompanyMembership) error
	CompanyMember(ctx context.Context, companyId, userId string) (*entity.CompanyMembership, error)

	CreateCompany(ctx context.Context, company *entity.Company) error
	CompanyById(ctx context.Context, id string) (*entity.Company, error)
	CompanyByIdForUpdate(ctx context.Context, id string) (*entity.Company, error)
	CompaniesByStatus(ctx context.Context, status entity.CompanyStatus) ([]*entity.Company, error)
	UpdateCompanyReview(ctx context.Context, company *entity.Company) error

	CreateUser(ctx context.Context, user *entity.User) error
	UserById(ctx context.Context, id string) (*entity.User, error)
	UserByEmail(ctx context.Context, email string) (*entity.User, error)
	SetUserCompanyIfEmpty(ctx context.Context, userId, companyId string) error
	UpdateUserRole(ctx context.Context, userId string, role entity.Role, companyId string) error
}

var (
	_ Queries = (*queries)(nil)
	_ Queries = (*SqlStore)(nil)
)

type scanner interface {
	Scan(dest ...any) error
}
