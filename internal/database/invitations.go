package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"courseadmin/entity"
)

func (q *queries) CreateInvitation(ctx context.Context, code *entity.InvitationCode) error {
	_, err := q.exec(ctx, stmtInsertInvitation,
		code.Id,
		code.Code,
		string(code.Scope),
		code.TargetId,
		code.MaxUses,
		code.CurrentUses,
		toMillis(code.ExpiresAt),
		code.IsActive,
		code.Description,
		code.CreatedBy,
		toMillis(code.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (q *queries) InvitationByCode(ctx context.Context, code string) (*entity.InvitationCode, error) {
	return q.invitation(ctx, stmtInvitationByCode, code)
}

func (q *queries) InvitationByCodeForUpdate(ctx context.Context, code string) (*entity.InvitationCode, error) {
	return q.invitation(ctx, stmtInvitationByCodeForUpdate, code)
}

func (q *queries) InvitationById(ctx context.Context, id string) (*entity.InvitationCode, error) {
	return q.invitation(ctx, stmtInvitationById, id)
}

func (q *queries) invitation(ctx context.Context, name string, arg string) (*entity.InvitationCode, error) {
	row, err := q.queryRow(ctx, name, arg)
	if err != nil {
		return nil, err
	}
	code, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select invitation: %w", err)
	}
	return code, nil
}

func (q *queries) ListInvitations(ctx context.Context, scope entity.Scope, targetId string) ([]*entity.InvitationCode, error) {
	rows, err := q.query(ctx, stmtInvitationsByTarget, string(scope), targetId)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	var codes []*entity.InvitationCode
	for rows.Next() {
		code, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		codes = append(codes, code)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (q *queries) DeactivateInvitation(ctx context.Context, id string) error {
	if _, err := q.exec(ctx, stmtDeactivateInvitation, id); err != nil {
		return fmt.Errorf("deactivate invitation: %w", err)
	}
	return nil
}

func (q *queries) IncrementInvitationUses(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := q.exec(ctx, stmtIncrementInvitationUses, id, toMillis(now))
	if err != nil {
		return false, fmt.Errorf("increment invitation uses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment invitation uses: %w", err)
	}
	return affected == 1, nil
}

func scanInvitation(row scanner) (*entity.InvitationCode, error) {
	var code entity.InvitationCode
	var scope string
	var expiresAt, createdAt int64
	if err := row.Scan(
		&code.Id,
		&code.Code,
		&scope,
		&code.TargetId,
		&code.MaxUses,
		&code.CurrentUses,
		&expiresAt,
		&code.IsActive,
		&code.Description,
		&code.CreatedBy,
		&createdAt,
	); err != nil {
		return nil, err
	}
	code.Scope = entity.Scope(scope)
	code.ExpiresAt = fromMillis(expiresAt)
	code.CreatedAt = fromMillis(createdAt)
	return &code, nil
}
