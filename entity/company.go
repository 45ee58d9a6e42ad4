package entity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"courseadmin/lib/validate"

	"github.com/biter777/countries"
)

// CompanyStatus moves pending -> active (approve) or pending -> inactive
// (reject). Nothing moves back to pending.
type CompanyStatus string

const (
	CompanyPending  CompanyStatus = "pending"
	CompanyActive   CompanyStatus = "active"
	CompanyInactive CompanyStatus = "inactive"
)

type Company struct {
	Id              string        `json:"id" bson:"id"`
	CompanyName     string        `json:"companyName" bson:"company_name"`
	TaxNumber       string        `json:"taxNumber" bson:"tax_number"`
	Status          CompanyStatus `json:"status" bson:"status"`
	ContactName     string        `json:"contactName" bson:"contact_name"`
	ContactEmail    string        `json:"contactEmail" bson:"contact_email"`
	ContactPhone    string        `json:"contactPhone,omitempty" bson:"contact_phone,omitempty"`
	Address         string        `json:"address,omitempty" bson:"address,omitempty"`
	Country         string        `json:"country,omitempty" bson:"country,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty" bson:"rejection_reason,omitempty"`
	ReviewedBy      string        `json:"reviewedBy,omitempty" bson:"reviewed_by,omitempty"`
	ReviewedAt      time.Time     `json:"reviewedAt,omitempty" bson:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `json:"createdAt" bson:"created_at"`
}

// RegisterCompany is the public self-registration payload.
type RegisterCompany struct {
	CompanyName  string `json:"companyName" validate:"required,max=200"`
	TaxNumber    string `json:"taxNumber" validate:"required,min=5,max=32"`
	ContactName  string `json:"contactName" validate:"required,max=200"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	ContactPhone string `json:"contactPhone" validate:"omitempty,max=32"`
	Address      string `json:"address" validate:"omitempty,max=500"`
	Country      string `json:"country" validate:"omitempty"`
}

func (c *RegisterCompany) Bind(_ *http.Request) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	c.TaxNumber = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c.TaxNumber), " ", ""))
	c.ContactEmail = strings.ToLower(strings.TrimSpace(c.ContactEmail))
	if c.Country != "" {
		code := CountryCode(c.Country)
		if code == "" {
			return fmt.Errorf("country %s is unknown", c.Country)
		}
		c.Country = code
	}
	return nil
}

// CountryCode resolves a country name or ISO code to its alpha-2 code,
// empty if the country is unknown.
func CountryCode(name string) string {
	country := countries.ByName(strings.TrimSpace(name))
	if country == countries.Unknown {
		return ""
	}
	code := country.Alpha2()
	if len(code) == 2 {
		return code
	}
	return ""
}

type RejectCompany struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

func (r *RejectCompany) Bind(_ *http.Request) error {
	return validate.Struct(r)
}

// Decision is the outcome of an approval call. Changed is false when the
// company was already in the requested state.
type Decision struct {
	Company *Company `json:"company"`
	Changed bool     `json:"changed"`
	Message string   `json:"message"`
}
