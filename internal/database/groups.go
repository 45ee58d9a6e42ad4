package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courseadmin/entity"
)

func (q *queries) CreateGroup(ctx context.Context, group *entity.Group) error {
	_, err := q.exec(ctx, stmtInsertGroup,
		group.Id,
		group.Name,
		group.CompanyId,
		group.MaxParticipants,
		string(group.Status),
		group.CreatedBy,
		toMillis(group.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (q *queries) GroupById(ctx context.Context, id string) (*entity.Group, error) {
	return q.group(ctx, stmtGroupById, id)
}

func (q *queries) GroupByIdForUpdate(ctx context.Context, id string) (*entity.Group, error) {
	return q.group(ctx, stmtGroupByIdForUpdate, id)
}

func (q *queries) group(ctx context.Context, name, id string) (*entity.Group, error) {
	row, err := q.queryRow(ctx, name, id)
	if err != nil {
		return nil, err
	}
	var group entity.Group
	var status string
	var createdAt int64
	err = row.Scan(
		&group.Id,
		&group.Name,
		&group.CompanyId,
		&group.MaxParticipants,
		&status,
		&group.CreatedBy,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select group: %w", err)
	}
	group.Status = entity.GroupStatus(status)
	group.CreatedAt = fromMillis(createdAt)
	return &group, nil
}

func (q *queries) SetGroupStatus(ctx context.Context, id string, status entity.GroupStatus) error {
	if _, err := q.exec(ctx, stmtUpdateGroupStatus, string(status), id); err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	return nil
}

func (q *queries) CountActiveMembers(ctx context.Context, groupId string) (int, error) {
	row, err := q.queryRow(ctx, stmtCountActiveMembers, groupId)
	if err != nil {
		return 0, err
	}
	var count int
	if err = row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func (q *queries) GroupMember(ctx context.Context, groupId, userId string) (*entity.GroupMembership, error) {
	row, err := q.queryRow(ctx, stmtGroupMember, groupId, userId)
	if err != nil {
		return nil, err
	}
	var member entity.GroupMembership
	var status string
	var joinedAt int64
	err = row.Scan(&member.GroupId, &member.UserId, &status, &member.InvitationId, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select group member: %w", err)
	}
	member.Status = entity.MembershipStatus(status)
	member.JoinedAt = fromMillis(joinedAt)
	return &member, nil
}

// AddGroupMember inserts an active membership, or reactivates a removed one.
// An already active membership is reported as ErrDuplicate.
func (q *queries) AddGroupMember(ctx context.Context, member *entity.GroupMembership) error {
	_, err := q.exec(ctx, stmtInsertGroupMember,
		member.GroupId,
		member.UserId,
		string(entity.MembershipActive),
		member.InvitationId,
		toMillis(member.JoinedAt),
	)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return fmt.Errorf("insert group member: %w", err)
	}
	res, err := q.exec(ctx, stmtReactivateMember,
		member.InvitationId,
		toMillis(member.JoinedAt),
		member.GroupId,
		member.UserId,
	)
	if err != nil {
		return fmt.Errorf("reactivate group member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reactivate group member: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (q *queries) RemoveGroupMember(ctx context.Context, groupId, userId string) (bool, error) {
	res, err := q.exec(ctx, stmtRemoveGroupMember, groupId, userId)
	if err != nil {
		return false, fmt.Errorf("remove group member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove group member: %w", err)
	}
	return affected > 0, nil
}

// AddCompanyMember is idempotent: an existing membership is left as is.
func (q *queries) AddCompanyMember(ctx context.Context, member *entity.CompanyMembership) error {
	if _, err := q.exec(ctx, stmtInsertCompanyMember,
		member.CompanyId,
		member.UserId,
		toMillis(member.JoinedAt),
	); err != nil {
		return fmt.Errorf("insert company member: %w", err)
	}
	return nil
}

func (q *queries) CompanyMember(ctx context.Context, companyId, userId string) (*entity.CompanyMembership, error) {
	row, err := q.queryRow(ctx, stmtCompanyMember, companyId, userId)
	if err != nil {
		return nil, err
	}
	var member entity.CompanyMembership
	var joinedAt int64
	err = row.Scan(&member.CompanyId, &member.UserId, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select company member: %w", err)
	}
	member.JoinedAt = fromMillis(joinedAt)
	return &member, nil
}
