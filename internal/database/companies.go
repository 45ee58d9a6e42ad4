package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"courseadmin/entity"
)

func (q *queries) CreateCompany(ctx context.Context, company *entity.Company) error {
	_, err := q.exec(ctx, stmtInsertCompany,
		company.Id,
		company.CompanyName,
		company.TaxNumber,
		string(company.Status),
		company.ContactName,
		company.ContactEmail,
		company.ContactPhone,
		company.Address,
		company.Country,
		company.RejectionReason,
		company.ReviewedBy,
		toMillis(company.ReviewedAt),
		toMillis(company.CreatedAt),
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (q *queries) CompanyById(ctx context.Context, id string) (*entity.Company, error) {
	return q.company(ctx, stmtCompanyById, id)
}

func (q *queries) CompanyByIdForUpdate(ctx context.Context, id string) (*entity.Company, error) {
	return q.company(ctx, stmtCompanyByIdForUpdate, id)
}

func (q *queries) company(ctx context.Context, name, id string) (*entity.Company, error) {
	row, err := q.queryRow(ctx, name, id)
	if err != nil {
		return nil, err
	}
	company, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select company: %w", err)
	}
	return company, nil
}

func (q *queries) CompaniesByStatus(ctx context.Context, status entity.CompanyStatus) ([]*entity.Company, error) {
	rows, err := q.query(ctx, stmtCompaniesByStatus, string(status))
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []*entity.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func (q *queries) UpdateCompanyReview(ctx context.Context, company *entity.Company) error {
	if _, err := q.exec(ctx, stmtUpdateCompanyReview,
		string(company.Status),
		company.RejectionReason,
		company.ReviewedBy,
		toMillis(company.ReviewedAt),
		company.Id,
	); err != nil {
		return fmt.Errorf("update company review: %w", err)
	}
	return nil
}

func scanCompany(row scanner) (*entity.Company, error) {
	var company entity.Company
	var status string
	var reviewedAt, createdAt int64
	if err := row.Scan(
		&company.Id,
		&company.CompanyName,
		&company.TaxNumber,
		&status,
		&company.ContactName,
		&company.ContactEmail,
		&company.ContactPhone,
		&company.Address,
		&company.Country,
		&company.RejectionReason,
		&company.ReviewedBy,
		&reviewedAt,
		&createdAt,
	); err != nil {
		return nil, err
	}
	company.Status = entity.CompanyStatus(status)
	company.ReviewedAt = fromMillis(reviewedAt)
	company.CreatedAt = fromMillis(createdAt)
	return &company, nil
}
