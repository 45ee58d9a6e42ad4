package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courseadmin/entity"
)

func (q *queries) CreateUser(ctx context.Context, user *entity.User) error {
	_, err := q.exec(ctx, stmtInsertUser,
		user.Id,
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		user.CompanyId,
		toMillis(user.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *queries) UserById(ctx context.Context, id string) (*entity.User, error) {
	return q.user(ctx, stmtUserById, id)
}

func (q *queries) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	return q.user(ctx, stmtUserByEmail, email)
}

func (q *queries) user(ctx context.Context, name, arg string) (*entity.User, error) {
	row, err := q.queryRow(ctx, name, arg)
	if err != nil {
		return nil, err
	}
	var user entity.User
	var role string
	var createdAt int64
	err = row.Scan(
		&user.Id,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&role,
		&user.CompanyId,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	user.Role = entity.Role(role)
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

func (q *queries) SetUserCompanyIfEmpty(ctx context.Context, userId, companyId string) error {
	if _, err := q.exec(ctx, stmtSetUserCompanyIfEmpty, companyId, userId); err != nil {
		return fmt.Errorf("set user company: %w", err)
	}
	return nil
}

func (q *queries) UpdateUserRole(ctx context.Context, userId string, role entity.Role, companyId string) error {
	if _, err := q.exec(ctx, stmtUpdateUserRole, string(role), companyId, userId); err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return nil
}
