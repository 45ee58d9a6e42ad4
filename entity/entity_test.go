package entity

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapacity(t *testing.T) {
	tests := []struct {
		max, current int
		want         Capacity
	}{
		{20, 20, Capacity{MaxParticipants: 20, CurrentParticipants: 20, AvailableSpots: 0, HasCapacity: false, Percentage: 100}},
		{8, 3, Capacity{MaxParticipants: 8, CurrentParticipants: 3, AvailableSpots: 5, HasCapacity: true, Percentage: 37}},
		{5, 7, Capacity{MaxParticipants: 5, CurrentParticipants: 7, AvailableSpots: 0, HasCapacity: false, Percentage: 100}},
		{0, 0, Capacity{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.current, tt.max), func(t *testing.T) {
			assert.Equal(t, tt.want, NewCapacity(tt.max, tt.current))
		})
	}
}

func TestInvitationUsable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	code := InvitationCode{IsActive: true, MaxUses: 2, CurrentUses: 1, ExpiresAt: now.Add(time.Minute)}
	assert.True(t, code.Usable(now))
	assert.Equal(t, 1, code.RemainingUses())

	expired := code
	expired.ExpiresAt = now
	assert.False(t, expired.Usable(now), "expiry instant is exclusive")

	used := code
	used.CurrentUses = 2
	assert.False(t, used.Usable(now))
	assert.Equal(t, 0, used.RemainingUses())

	inactive := code
	inactive.IsActive = false
	assert.False(t, inactive.Usable(now))

	assert.Equal(t, "ABCD-2345", NormalizeCode("  abcd-2345\t"))
}

func TestManages(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	manager := &User{Role: RoleManager, CompanyId: "c1"}
	user := &User{Role: RoleUser, CompanyId: "c1"}

	assert.True(t, admin.Manages(""))
	assert.True(t, manager.Manages("c1"))
	assert.False(t, manager.Manages("c2"))
	assert.False(t, manager.Manages(""))
	assert.False(t, user.Manages("c1"))
}

func TestFailureReason(t *testing.T) {
	err := fmt.Errorf("redeem: %w", Fail(ReasonExpired, "code expired on %s", "2026-01-01"))
	assert.Equal(t, ReasonExpired, ReasonOf(err))
	assert.True(t, IsReason(err, ReasonExpired))
	assert.Equal(t, "redeem: code expired on 2026-01-01", err.Error())
	assert.Equal(t, ReasonUnknown, ReasonOf(fmt.Errorf("boom")))
	assert.Equal(t, Reason(""), ReasonOf(nil))
}

func TestRegisterCompanyBind(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	req := RegisterCompany{
		CompanyName:  "Acme",
		TaxNumber:    " de 999 888 ",
		ContactName:  "Jan",
		ContactEmail: " Jan@Acme.DE ",
		Country:      "DE",
	}
	require.Error(t, req.Bind(r), "email with spaces does not validate")

	req.ContactEmail = "Jan@Acme.DE"
	require.NoError(t, req.Bind(r))
	assert.Equal(t, "DE999888", req.TaxNumber)
	assert.Equal(t, "jan@acme.de", req.ContactEmail)
	assert.Equal(t, "DE", req.Country)

	req.Country = "Atlantis"
	assert.Error(t, req.Bind(r))
}

func TestCountryCode(t *testing.T) {
	assert.Equal(t, "PL", CountryCode("Poland"))
	assert.Equal(t, "UA", CountryCode(" UA "))
	assert.Equal(t, "", CountryCode("nowhere"))
}

func TestGroupStatusBind(t *testing.T) {
	r := httptest.NewRequest("PUT", "/", nil)
	assert.NoError(t, (&SetGroupStatus{Status: GroupClosed}).Bind(r))
	assert.Error(t, (&SetGroupStatus{Status: GroupFull}).Bind(r))
	assert.Error(t, (&SetGroupStatus{}).Bind(r))
	assert.Error(t, (&CreateGroup{Name: "G", MaxParticipants: 0}).Bind(r))
	assert.NoError(t, (&CreateGroup{Name: "G", MaxParticipants: 3}).Bind(r))
}
