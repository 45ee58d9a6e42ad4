package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"courseadmin/entity"
	"courseadmin/impl/core"
	"courseadmin/internal/config"
	"courseadmin/internal/database"
	"courseadmin/internal/database/dbtest"
	"courseadmin/internal/http-server/api"
	"courseadmin/lib/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

type envelope struct {
	Data          json.RawMessage `json:"data"`
	Success       bool            `json:"success"`
	StatusMessage string          `json:"status_message"`
	Error         entity.Reason   `json:"error"`
}

type testApi struct {
	t      *testing.T
	store  *database.SqlStore
	router http.Handler
}

func newApi(t *testing.T, requests int) *testApi {
	store := dbtest.New(t)
	handler := core.New(store, core.Config{
		JwtSecret: "test-secret-0123456789",
		TokenTTL:  time.Hour,
		Now:       clock.Fixed(dbtest.Now),
	}, dbtest.Log())
	_, err := handler.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	conf := &config.Config{
		Cors:      config.CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{Requests: requests, WindowSec: 60},
	}
	return &testApi{t: t, store: store, router: api.NewRouter(conf, dbtest.Log(), handler)}
}

func (a *testApi) call(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (a *testApi) login() string {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/public/login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(a.t, http.StatusOK, code)
	var token entity.Token
	require.NoError(a.t, json.Unmarshal(env.Data, &token))
	require.NotEmpty(a.t, token.Token)
	return token.Token
}

func TestCompanyInvitationCheck(t *testing.T) {
	a := newApi(t, 0)
	company := dbtest.Company(t, a.store, "Acme", entity.CompanyActive)
	dbtest.Code(t, a.store, "ACME-2345", entity.ScopeCompany, company.Id, 5, 0, dbtest.Now.Add(time.Hour))

	code, env := a.call(http.MethodPost, "/api/public/company-invitations/check", "", map[string]string{
		"invitationCode": " acme-2345 ",
	})
	require.Equal(t, http.StatusOK, code)
	var check entity.CompanyInvitationCheck
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.True(t, check.IsValid)
	assert.Equal(t, "Acme", check.CompanyName)
	assert.Equal(t, company.Id, check.CompanyId)

	code, env = a.call(http.MethodPost, "/api/public/company-invitations/check", "", map[string]string{
		"invitationCode": "NOPE-0000",
	})
	require.Equal(t, http.StatusOK, code, "an unknown code is an answer, not an error")
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.False(t, check.IsValid)
	assert.Equal(t, entity.ReasonNotFound, check.Reason)

	code, env = a.call(http.MethodPost, "/api/public/company-invitations/check", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, entity.ReasonValidation, env.Error)
}

func TestGroupInvitationFlow(t *testing.T) {
	a := newApi(t, 0)
	group := dbtest.Group(t, a.store, "", 1, entity.GroupActive)
	inv := dbtest.Code(t, a.store, "GRP1-2345", entity.ScopeGroup, group.Id, 5, 0, dbtest.Now.Add(time.Hour))
	first := dbtest.User(t, a.store, entity.RoleUser, "")
	second := dbtest.User(t, a.store, entity.RoleUser, "")

	code, env := a.call(http.MethodGet, "/api/public/groups/invitation/GRP1-2345/validate", "", nil)
	require.Equal(t, http.StatusOK, code)
	var check entity.GroupInvitationCheck
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.True(t, check.Valid)
	require.NotNil(t, check.Group)
	assert.Equal(t, 1, check.Group.Capacity.AvailableSpots)
	assert.Equal(t, 5, check.RemainingUses)

	code, env = a.call(http.MethodPost, "/api/public/groups/use-invitation", "", map[string]string{
		"invitationCode": "GRP1-2345",
		"userId":         first.Id,
	})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = a.call(http.MethodPost, "/api/public/groups/use-invitation", "", map[string]string{
		"invitationCode": "GRP1-2345",
		"userId":         second.Id,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, entity.ReasonCapacityExceeded, env.Error)
	assert.Equal(t, 1, dbtest.Uses(t, a.store, inv.Id))

	code, env = a.call(http.MethodGet, "/api/public/groups/invitation/GRP1-2345/validate", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &check))
	assert.False(t, check.Valid)
	assert.Equal(t, entity.ReasonCapacityExceeded, check.Reason)
}

func TestRegisterWithCode(t *testing.T) {
	a := newApi(t, 0)
	company := dbtest.Company(t, a.store, "Acme", entity.CompanyActive)
	inv := dbtest.Code(t, a.store, "JOIN-2345", entity.ScopeCompany, company.Id, 1, 0, dbtest.Now.Add(time.Hour))

	code, env := a.call(http.MethodPost, "/api/public/register", "", map[string]string{
		"email":          "new@example.com",
		"name":           "New User",
		"password":       "long-password",
		"invitationCode": "JOIN-2345",
	})
	require.Equal(t, http.StatusCreated, code)
	var red entity.Redemption
	require.NoError(t, json.Unmarshal(env.Data, &red))
	assert.Equal(t, company.Id, red.CompanyId)
	assert.Equal(t, 1, dbtest.Uses(t, a.store, inv.Id))

	code, env = a.call(http.MethodPost, "/api/public/register", "", map[string]string{
		"email":          "late@example.com",
		"name":           "Late User",
		"password":       "long-password",
		"invitationCode": "JOIN-2345",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, entity.ReasonUsageLimitReached, env.Error)

	user, err := a.store.UserByEmail(context.Background(), "late@example.com")
	require.NoError(t, err)
	assert.Nil(t, user, "no account without a usable code")
}

func TestPrivateRoutesNeedToken(t *testing.T) {
	a := newApi(t, 0)
	for _, path := range []string{
		"/api/admin/companies/pending",
		"/api/company-invitations/company/c1",
		"/api/groups/g1",
	} {
		code, env := a.call(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, entity.ReasonAuthRequired, env.Error, path)
	}

	code, _ := a.call(http.MethodGet, "/api/admin/companies/pending", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCompanyApproval(t *testing.T) {
	a := newApi(t, 0)
	token := a.login()

	code, env := a.call(http.MethodPost, "/api/public/companies", "", map[string]string{
		"companyName":  "Acme",
		"taxNumber":    "pl 123 4567",
		"contactName":  "Anna",
		"contactEmail": "Anna@Acme.pl",
		"country":      "Poland",
	})
	require.Equal(t, http.StatusCreated, code)
	var company entity.Company
	require.NoError(t, json.Unmarshal(env.Data, &company))
	assert.Equal(t, "PL1234567", company.TaxNumber)
	assert.Equal(t, "PL", company.Country)
	assert.Equal(t, entity.CompanyPending, company.Status)

	code, env = a.call(http.MethodGet, "/api/admin/companies/pending", token, nil)
	require.Equal(t, http.StatusOK, code)
	var pending []*entity.Company
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)

	code, env = a.call(http.MethodPut, "/api/admin/companies/"+company.Id+"/approve", token, nil)
	require.Equal(t, http.StatusOK, code)
	var decision entity.Decision
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.True(t, decision.Changed)

	code, env = a.call(http.MethodPut, "/api/admin/companies/"+company.Id+"/approve", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.False(t, decision.Changed)

	code, env = a.call(http.MethodPut, "/api/admin/companies/"+company.Id+"/reject", token, map[string]string{"reason": "late"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, entity.ReasonValidation, env.Error)

	code, env = a.call(http.MethodPost, "/api/company-invitations", token, map[string]interface{}{
		"companyId":    company.Id,
		"maxUses":      10,
		"validForDays": 30,
	})
	require.Equal(t, http.StatusCreated, code)
	var inv entity.InvitationCode
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Regexp(t, `^[2-9A-HJKMNP-Z]{4}-[2-9A-HJKMNP-Z]{4}$`, inv.Code)
	assert.True(t, dbtest.Now.AddDate(0, 0, 30).Equal(inv.ExpiresAt))

	code, env = a.call(http.MethodPut, "/api/group-invitations/"+inv.Id+"/deactivate", token, nil)
	assert.Equal(t, http.StatusNotFound, code, "company code through the group route")

	code, _ = a.call(http.MethodPut, "/api/company-invitations/"+inv.Id+"/deactivate", token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuditTrailWithoutStore(t *testing.T) {
	a := newApi(t, 0)
	token := a.login()
	code, env := a.call(http.MethodGet, "/api/admin/audit/some-id", token, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", env.StatusMessage)
}

func TestNotFoundAndMetrics(t *testing.T) {
	a := newApi(t, 0)
	code, env := a.call(http.MethodGet, "/api/public/nothing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPublicRateLimit(t *testing.T) {
	a := newApi(t, 2)
	path := "/api/public/groups/invitation/NONE-2345/validate"
	for i := 0; i < 2; i++ {
		code, _ := a.call(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, env := a.call(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.False(t, env.Success)
}

func (a *testApi) loginAs(email, password string) string {
	a.t.Helper()
	code, env := a.call(http.MethodPost, "/api/public/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(a.t, http.StatusOK, code)
	var token entity.Token
	require.NoError(a.t, json.Unmarshal(env.Data, &token))
	return token.Token
}

func TestApprovedCompanyGetsManager(t *testing.T) {
	a := newApi(t, 0)
	admin := a.login()

	code, env := a.call(http.MethodPost, "/api/public/companies", "", map[string]string{
		"companyName":  "Acme",
		"taxNumber":    "PL7654321",
		"contactName":  "Anna",
		"contactEmail": "anna@acme.pl",
	})
	require.Equal(t, http.StatusCreated, code)
	var company entity.Company
	require.NoError(t, json.Unmarshal(env.Data, &company))

	code, env = a.call(http.MethodPost, "/api/public/register", "", map[string]string{
		"email":    "anna@acme.pl",
		"name":     "Anna",
		"password": "anna-password",
	})
	require.Equal(t, http.StatusCreated, code)
	var red entity.Redemption
	require.NoError(t, json.Unmarshal(env.Data, &red))

	manager := a.loginAs("anna@acme.pl", "anna-password")
	invite := map[string]interface{}{"companyId": company.Id, "maxUses": 5, "validForDays": 14}
	code, env = a.call(http.MethodPost, "/api/company-invitations", manager, invite)
	assert.Equal(t, http.StatusForbidden, code, "a plain user cannot issue codes")

	role := map[string]string{"role": "manager", "companyId": company.Id}
	code, env = a.call(http.MethodPut, "/api/admin/users/"+red.UserId+"/role", admin, role)
	assert.Equal(t, http.StatusBadRequest, code, "pending company")
	assert.Equal(t, entity.ReasonValidation, env.Error)

	code, _ = a.call(http.MethodPut, "/api/admin/companies/"+company.Id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.call(http.MethodPut, "/api/admin/users/"+red.UserId+"/role", manager, role)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.call(http.MethodPut, "/api/admin/users/"+red.UserId+"/role", admin, role)
	require.Equal(t, http.StatusOK, code)
	var user entity.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, entity.RoleManager, user.Role)
	assert.Equal(t, company.Id, user.CompanyId)

	code, env = a.call(http.MethodPost, "/api/company-invitations", manager, invite)
	require.Equal(t, http.StatusCreated, code)
	var inv entity.InvitationCode
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, company.Id, inv.TargetId)
	assert.Equal(t, red.UserId, inv.CreatedBy)

	code, env = a.call(http.MethodGet, "/api/company-invitations/company/"+company.Id, manager, nil)
	require.Equal(t, http.StatusOK, code)
	var list []*entity.InvitationWithDetails
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	code, env = a.call(http.MethodPut, "/api/admin/users/"+red.UserId+"/role", admin, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUseInvitationOnlyTakesGroupCodes(t *testing.T) {
	a := newApi(t, 0)
	company := dbtest.Company(t, a.store, "Acme", entity.CompanyActive)
	inv := dbtest.Code(t, a.store, "COMP-2345", entity.ScopeCompany, company.Id, 5, 0, dbtest.Now.Add(time.Hour))
	user := dbtest.User(t, a.store, entity.RoleUser, "")

	code, env := a.call(http.MethodPost, "/api/public/groups/use-invitation", "", map[string]string{
		"invitationCode": inv.Code,
		"userId":         user.Id,
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, entity.ReasonNotFound, env.Error)
	assert.Equal(t, 0, dbtest.Uses(t, a.store, inv.Id))
}

func TestRemoveGroupMember(t *testing.T) {
	a := newApi(t, 0)
	admin := a.login()
	group := dbtest.Group(t, a.store, "", 1, entity.GroupActive)
	dbtest.Code(t, a.store, "ROOM-2345", entity.ScopeGroup, group.Id, 5, 0, dbtest.Now.Add(time.Hour))
	first := dbtest.User(t, a.store, entity.RoleUser, "")
	second := dbtest.User(t, a.store, entity.RoleUser, "")
	use := func(userId string) int {
		code, _ := a.call(http.MethodPost, "/api/public/groups/use-invitation", "", map[string]string{
			"invitationCode": "ROOM-2345",
			"userId":         userId,
		})
		return code
	}

	require.Equal(t, http.StatusOK, use(first.Id))
	require.Equal(t, http.StatusConflict, use(second.Id))

	path := "/api/groups/" + group.Id + "/members/" + first.Id
	code, env := a.call(http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, code)
	var view entity.GroupView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 1, view.Capacity.AvailableSpots)

	code, _ = a.call(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, code)

	assert.Equal(t, http.StatusOK, use(second.Id))
}
