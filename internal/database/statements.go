package database

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	invitationColumns = "id, code, scope, target_id, max_uses, current_uses, expires_at, is_active, description, created_by, created_at"
	groupColumns      = "id, name, company_id, max_participants, status, created_by, created_at"
	companyColumns    = "id, company_name, tax_number, status, contact_name, contact_email, contact_phone, address, country, rejection_reason, reviewed_by, reviewed_at, created_at"
	userColumns       = "id, email, name, password_hash, role, company_id, created_at"
)

const (
	stmtInsertInvitation          = "insertInvitation"
	stmtInvitationByCode          = "invitationByCode"
	stmtInvitationByCodeForUpdate = "invitationByCodeForUpdate"
	stmtInvitationById            = "invitationById"
	stmtInvitationsByTarget       = "invitationsByTarget"
	stmtDeactivateInvitation      = "deactivateInvitation"
	stmtIncrementInvitationUses   = "incrementInvitationUses"

	stmtInsertGroup         = "insertGroup"
	stmtGroupById           = "groupById"
	stmtGroupByIdForUpdate  = "groupByIdForUpdate"
	stmtUpdateGroupStatus   = "updateGroupStatus"
	stmtCountActiveMembers  = "countActiveMembers"
	stmtGroupMember         = "groupMember"
	stmtInsertGroupMember   = "insertGroupMember"
	stmtReactivateMember    = "reactivateGroupMember"
	stmtRemoveGroupMember   = "removeGroupMember"
	stmtInsertCompanyMember = "insertCompanyMember"
	stmtCompanyMember       = "companyMember"

	stmtInsertCompany        = "insertCompany"
	stmtCompanyById          = "companyById"
	stmtCompanyByIdForUpdate = "companyByIdForUpdate"
	stmtCompaniesByStatus    = "companiesByStatus"
	stmtUpdateCompanyReview  = "updateCompanyReview"

	stmtInsertUser            = "insertUser"
	stmtUserById              = "userById"
	stmtUserByEmail           = "userByEmail"
	stmtSetUserCompanyIfEmpty = "setUserCompanyIfEmpty"
	stmtUpdateUserRole        = "updateUserRole"
)

// statementText returns every query the store runs, keyed by statement name.
func (s *SqlStore) statementText() map[string]string {
	inv := s.table(tableInvitations)
	grp := s.table(tableGroups)
	gm := s.table(tableGroupMemberships)
	cm := s.table(tableCompanyMemberships)
	cmp := s.table(tableCompanies)
	usr := s.table(tableUsers)
	lock := s.dialect.forUpdate

	return map[string]string{
		stmtInsertInvitation: fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, inv, invitationColumns),
		stmtInvitationByCode: fmt.Sprintf(
			`SELECT %s FROM %s WHERE code = ?`, invitationColumns, inv),
		stmtInvitationByCodeForUpdate: fmt.Sprintf(
			`SELECT %s FROM %s WHERE code = ?%s`, invitationColumns, inv, lock),
		stmtInvitationById: fmt.Sprintf(
			`SELECT %s FROM %s WHERE id = ?`, invitationColumns, inv),
		stmtInvitationsByTarget: fmt.Sprintf(
			`SELECT %s FROM %s WHERE scope = ? AND target_id = ? ORDER BY created_at DESC, code`, invitationColumns, inv),
		stmtDeactivateInvitation: fmt.Sprintf(
			`UPDATE %s SET is_active = 0 WHERE id = ?`, inv),
		// the guard makes the increment a no-op for a code that stopped being
		// usable, so current_uses can never pass max_uses
		stmtIncrementInvitationUses: fmt.Sprintf(
			`UPDATE %s SET current_uses = current_uses + 1
                   WHERE id = ? AND is_active = 1 AND expires_at > ? AND current_uses < max_uses`, inv),

		stmtInsertGroup: fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`, grp, groupColumns),
		stmtGroupById: fmt.Sprintf(
			`SELECT %s FROM %s WHERE id = ?`, groupColumns, grp),
		stmtGroupByIdForUpdate: fmt.Sprintf(
			`SELECT %s FROM %s WHERE id = ?%s`, groupColumns, grp, lock),
		stmtUpdateGroupStatus: fmt.Sprintf(
			`UPDATE %s SET status = ? WHERE id = ?`, grp),
		stmtCountActiveMembers: fmt.Sprintf(
			`SELECT COUNT(*) FROM %s WHERE group_id = ? AND status = 'active'`, gm),
		stmtGroupMember: fmt.Sprintf(
			`SELECT group_id, user_id, status, invitation_id, joined_at FROM %s WHERE group_id = ? AND user_id = ?`, gm),
		stmtInsertGroupMember: fmt.Sprintf(
			`INSERT INTO %s (group_id, user_id, status, invitation_id, joined_at) VALUES (?, ?, ?, ?, ?)`, gm),
		stmtReactivateMember: fmt.Sprintf(
			`UPDATE %s SET status = 'active', invitation_id = ?, joined_at = ?
                   WHERE group_id = ? AND user_id = ? AND status = 'removed'`, gm),
		stmtRemoveGroupMember: fmt.Sprintf(
			`UPDATE %s SET status = 'removed' WHERE group_id = ? AND user_id = ? AND status = 'active'`, gm),
		stmtInsertCompanyMember: fmt.Sprintf(
			`%s %s (company_id, user_id, joined_at) VALUES (?, ?, ?)`, s.dialect.insertIgnore, cm),
		stmtCompanyMember: fmt.Sprintf(
			`SELECT company_id, user_id, joined_at FROM %s WHERE company_id = ? AND user_id = ?`, cm),

		stmtInsertCompany: fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, cmp, companyColumns),
		stmtCompanyById: fmt.Sprintf(
			`SELECT %s FROM %s WHERE id = ?`, companyColumns, cmp),
		stmtCompanyByIdForUpdate: fmt.Sprintf(
			`SELECT %s FROM %s WHERE id = ?%s`, companyColumns, cmp, lock),
		stmtCompaniesByStatus: fmt.Sprintf(
			`SELECT %s FROM %s WHERE status = ? ORDER BY created_at, id`, companyColumns, cmp),
		stmtUpdateCompanyReview: fmt.Sprintf(
			`UPDATE %s SET status = ?, rejection_reason = ?, reviewed_by = ?, reviewed_at = ? WHERE id = ?`, cmp),

		stmtInsertUser: fmt.Sprintf(
			`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)`, usr, userColumns),
		stmtUserById: fmt.Sprintf(
			`SELECT %s FROM %s WHERE id = ?`, userColumns, usr),
		stmtUserByEmail: fmt.Sprintf(
			`SELECT %s FROM %s WHERE email = ?`, userColumns, usr),
		stmtSetUserCompanyIfEmpty: fmt.Sprintf(
			`UPDATE %s SET company_id = ? WHERE id = ? AND company_id = ''`, usr),
		stmtUpdateUserRole: fmt.Sprintf(
			`UPDATE %s SET role = ?, company_id = ? WHERE id = ?`, usr),
	}
}

// prepareAll prepares every statement up front. On SQLite the only
// connection may be held by a transaction, so nothing is prepared lazily.
func (s *SqlStore) prepareAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, query := range s.statementText() {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("prepare statement [%s]: %w", name, err)
		}
		s.statements[name] = stmt
	}
	return nil
}

func (s *SqlStore) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

// queries runs the store statements either in autocommit mode (tx == nil)
// or bound to a transaction.
type queries struct {
	store *SqlStore
	tx    *sql.Tx
}

func (q *queries) stmt(ctx context.Context, name string) (*sql.Stmt, error) {
	q.store.mu.Lock()
	stmt, ok := q.store.statements[name]
	q.store.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("statement [%s] is not prepared", name)
	}
	if q.tx != nil {
		return q.tx.StmtContext(ctx, stmt), nil
	}
	return stmt, nil
}

func (q *queries) exec(ctx context.Context, name string, args ...any) (sql.Result, error) {
	stmt, err := q.stmt(ctx, name)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

func (q *queries) queryRow(ctx context.Context, name string, args ...any) (*sql.Row, error) {
	stmt, err := q.stmt(ctx, name)
	if err != nil {
		return nil, err
	}
	return stmt.QueryRowContext(ctx, args...), nil
}

func (q *queries) query(ctx context.Context, name string, args ...any) (*sql.Rows, error) {
	stmt, err := q.stmt(ctx, name)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}
