// Package company implements company self-registration and the admin
// review workflow: pending -> active (approve) or pending -> inactive (reject).
package company

import (
	"context"
	"errors"
	"log/slog"

	"courseadmin/entity"
	"courseadmin/internal/database"
	"courseadmin/internal/metrics"
	"courseadmin/lib/clock"
	"courseadmin/lib/sl"

	"github.com/google/uuid"
)

const (
	decisionApprove = "approve"
	decisionReject  = "reject"
)

type Database interface {
	CreateCompany(ctx context.Context, company *entity.Company) error
	CompanyById(ctx context.Context, id string) (*entity.Company, error)
	CompaniesByStatus(ctx context.Context, status entity.CompanyStatus) ([]*entity.Company, error)
	InTx(ctx context.Context, fn func(q database.Queries) error) error
}

type Service struct {
	db  Database
	now clock.Func
	log *slog.Logger
}

func New(db Database, now clock.Func, log *slog.Logger) *Service {
	if now == nil {
		now = clock.System
	}
	return &Service{
		db:  db,
		now: now,
		log: log.With(sl.Module("company")),
	}
}

// Register stores a self-registered company in the pending state.
func (s *Service) Register(ctx context.Context, req *entity.RegisterCompany) (*entity.Company, error) {
	company := &entity.Company{
		Id:           uuid.NewString(),
		CompanyName:  req.CompanyName,
		TaxNumber:    req.TaxNumber,
		Status:       entity.CompanyPending,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		Country:      req.Country,
		CreatedAt:    s.now(),
	}
	err := s.db.CreateCompany(ctx, company)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, entity.Fail(entity.ReasonValidation, "company with this tax number already exists")
	}
	if err != nil {
		return nil, err
	}
	s.log.With(
		slog.String("company_id", company.Id),
		slog.String("tax_number", company.TaxNumber),
	).Info("company registered")
	return company, nil
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Company, error) {
	company, err := s.db.CompanyById(ctx, id)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, entity.Fail(entity.ReasonNotFound, "company not found")
	}
	return company, nil
}

func (s *Service) ListPending(ctx context.Context, actor *entity.User) ([]*entity.Company, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	companies, err := s.db.CompaniesByStatus(ctx, entity.CompanyPending)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []*entity.Company{}
	}
	return companies, nil
}

// Approve activates a pending company. Approving an active company succeeds
// with Changed=false.
func (s *Service) Approve(ctx context.Context, actor *entity.User, id string) (*entity.Decision, error) {
	return s.decide(ctx, actor, id, decisionApprove, "")
}

// Reject deactivates a pending company and records the reason. Rejecting an
// inactive company succeeds with Changed=false.
func (s *Service) Reject(ctx context.Context, actor *entity.User, id, reason string) (*entity.Decision, error) {
	return s.decide(ctx, actor, id, decisionReject, reason)
}

func (s *Service) decide(ctx context.Context, actor *entity.User, id, decision, reason string) (*entity.Decision, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	target := entity.CompanyActive
	if decision == decisionReject {
		target = entity.CompanyInactive
	}

	var result *entity.Decision
	err := s.db.InTx(ctx, func(q database.Queries) error {
		company, err := q.CompanyByIdForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if company == nil {
			return entity.Fail(entity.ReasonNotFound, "company not found")
		}

		switch company.Status {
		case target:
			result = &entity.Decision{Company: company, Changed: false, Message: alreadyMessage(target)}
			return nil
		case entity.CompanyPending:
		default:
			return entity.Fail(entity.ReasonValidation, "company is already %s and cannot be changed", company.Status)
		}

		company.Status = target
		company.ReviewedBy = actor.Id
		company.ReviewedAt = s.now()
		if decision == decisionReject {
			company.RejectionReason = reason
		}
		if err = q.UpdateCompanyReview(ctx, company); err != nil {
			return err
		}
		result = &entity.Decision{Company: company, Changed: true, Message: doneMessage(target)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCompanyDecision(decision, result.Changed)
	s.log.With(
		slog.String("company_id", id),
		slog.String("decision", decision),
		slog.Bool("changed", result.Changed),
		slog.String("admin", actor.Id),
	).Info("company reviewed")
	return result, nil
}

// AssignRole changes the role of a user. A manager is linked to an active
// company: the one in req, or the user's own company when req has none.
func (s *Service) AssignRole(ctx context.Context, actor *entity.User, userId string, req *entity.AssignRole) (*entity.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var user *entity.User
	err := s.db.InTx(ctx, func(q database.Queries) error {
		var err error
		user, err = q.UserById(ctx, userId)
		if err != nil {
			return err
		}
		if user == nil {
			return entity.Fail(entity.ReasonNotFound, "user not found")
		}
		if user.Id == actor.Id && req.Role != entity.RoleAdmin {
			return entity.Fail(entity.ReasonValidation, "admins cannot change their own role")
		}

		companyId := req.CompanyId
		if companyId == "" {
			companyId = user.CompanyId
		}
		if req.Role == entity.RoleManager && companyId == "" {
			return entity.Fail(entity.ReasonValidation, "a manager needs a company")
		}
		if companyId != "" {
			company, err := q.CompanyById(ctx, companyId)
			if err != nil {
				return err
			}
			if company == nil {
				return entity.Fail(entity.ReasonNotFound, "company not found")
			}
			if req.Role == entity.RoleManager && company.Status != entity.CompanyActive {
				return entity.Fail(entity.ReasonValidation, "company is not active")
			}
		}

		if err = q.UpdateUserRole(ctx, user.Id, req.Role, companyId); err != nil {
			return err
		}
		if companyId != "" {
			if err = q.AddCompanyMember(ctx, &entity.CompanyMembership{
				CompanyId: companyId,
				UserId:    user.Id,
				JoinedAt:  s.now(),
			}); err != nil {
				return err
			}
		}
		user.Role = req.Role
		user.CompanyId = companyId
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.With(
		slog.String("user_id", user.Id),
		slog.String("role", string(user.Role)),
		slog.String("company_id", user.CompanyId),
		slog.String("admin", actor.Id),
	).Info("role assigned")
	return user, nil
}

func requireAdmin(actor *entity.User) error {
	if actor == nil {
		return entity.Fail(entity.ReasonAuthRequired, "authentication required")
	}
	if !actor.IsAdmin() {
		return entity.Fail(entity.ReasonForbidden, "admin access required")
	}
	return nil
}

func alreadyMessage(status entity.CompanyStatus) string {
	if status == entity.CompanyActive {
		return "Company is already approved"
	}
	return "Company is already rejected"
}

func doneMessage(status entity.CompanyStatus) string {
	if status == entity.CompanyActive {
		return "Company approved"
	}
	return "Company rejected"
}
