package enrollment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"courseadmin/entity"
	"courseadmin/impl/enrollment"
	"courseadmin/impl/invitation"
	"courseadmin/internal/database"
	"courseadmin/internal/database/dbtest"
	"courseadmin/lib/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLinker(t *testing.T) (*enrollment.Linker, *database.SqlStore) {
	store := dbtest.New(t)
	return enrollment.New(store, clock.Fixed(dbtest.Now), dbtest.Log()), store
}

var later = dbtest.Now.Add(24 * time.Hour)

func TestRedeemGroupCode(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	group := dbtest.Group(t, store, company.Id, 10, entity.GroupActive)
	inv := dbtest.Code(t, store, "GRP1-2345", entity.ScopeGroup, group.Id, 5, 0, later)
	user := dbtest.User(t, store, entity.RoleUser, "")

	red, err := linker.Redeem(ctx, "", "grp1-2345", user.Id)
	require.NoError(t, err)
	assert.True(t, red.Success)
	assert.Equal(t, entity.StateLinked, red.State)
	assert.Equal(t, group.Id, red.GroupId)
	assert.Equal(t, company.Id, red.CompanyId)
	assert.Equal(t, inv.Id, red.InvitationId)
	assert.Equal(t, 1, dbtest.Uses(t, store, inv.Id))

	member, err := store.GroupMember(ctx, group.Id, user.Id)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, inv.Id, member.InvitationId)

	cm, err := store.CompanyMember(ctx, company.Id, user.Id)
	require.NoError(t, err)
	assert.NotNil(t, cm)

	loaded, err := store.UserById(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, company.Id, loaded.CompanyId)
}

func TestRedeemTwiceIsAlreadyMember(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	group := dbtest.Group(t, store, "", 10, entity.GroupActive)
	inv := dbtest.Code(t, store, "TWCE-2345", entity.ScopeGroup, group.Id, 5, 0, later)
	user := dbtest.User(t, store, entity.RoleUser, "")

	_, err := linker.Redeem(ctx, "", inv.Code, user.Id)
	require.NoError(t, err)

	red, err := linker.Redeem(ctx, "", inv.Code, user.Id)
	assert.Equal(t, entity.ReasonAlreadyMember, entity.ReasonOf(err))
	assert.False(t, red.Success)
	assert.Equal(t, entity.StateRejected, red.State)
	assert.Equal(t, 1, dbtest.Uses(t, store, inv.Id), "a rejected redemption does not consume")
}

func TestRemovedMemberCanRejoin(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	group := dbtest.Group(t, store, "", 1, entity.GroupActive)
	inv := dbtest.Code(t, store, "BACK-2345", entity.ScopeGroup, group.Id, 5, 0, later)
	user := dbtest.User(t, store, entity.RoleUser, "")

	_, err := linker.Redeem(ctx, entity.ScopeGroup, inv.Code, user.Id)
	require.NoError(t, err)
	removed, err := store.RemoveGroupMember(ctx, group.Id, user.Id)
	require.NoError(t, err)
	require.True(t, removed)

	red, err := linker.Redeem(ctx, entity.ScopeGroup, inv.Code, user.Id)
	require.NoError(t, err)
	assert.True(t, red.Success)
	assert.Equal(t, 2, dbtest.Uses(t, store, inv.Id))

	count, err := store.CountActiveMembers(ctx, group.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedeemRestrictedToScope(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	inv := dbtest.Code(t, store, "COMP-2345", entity.ScopeCompany, company.Id, 5, 0, later)
	user := dbtest.User(t, store, entity.RoleUser, "")

	red, err := linker.Redeem(ctx, entity.ScopeGroup, inv.Code, user.Id)
	assert.Equal(t, entity.ReasonNotFound, entity.ReasonOf(err))
	assert.Equal(t, "This is not a group invitation code", red.Message)
	assert.Equal(t, 0, dbtest.Uses(t, store, inv.Id))

	_, err = linker.Redeem(ctx, entity.ScopeCompany, inv.Code, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, dbtest.Uses(t, store, inv.Id))
}

func TestRedeemFullGroupLeavesUsesUnchanged(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	group := dbtest.Group(t, store, "", 3, entity.GroupActive)
	inv := dbtest.Code(t, store, "FULL-2345", entity.ScopeGroup, group.Id, 10, 2, later)
	dbtest.Fill(t, store, group.Id, 3)
	user := dbtest.User(t, store, entity.RoleUser, "")

	red, err := linker.Redeem(ctx, "", inv.Code, user.Id)
	assert.Equal(t, entity.ReasonCapacityExceeded, entity.ReasonOf(err))
	assert.Equal(t, entity.ReasonCapacityExceeded, red.Error)
	assert.Empty(t, red.GroupId)
	assert.Equal(t, 2, dbtest.Uses(t, store, inv.Id))

	count, err := store.CountActiveMembers(ctx, group.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRedeemClosedGroup(t *testing.T) {
	linker, store := newLinker(t)
	group := dbtest.Group(t, store, "", 3, entity.GroupDraft)
	inv := dbtest.Code(t, store, "DRFT-2345", entity.ScopeGroup, group.Id, 10, 0, later)
	user := dbtest.User(t, store, entity.RoleUser, "")

	_, err := linker.Redeem(context.Background(), "", inv.Code, user.Id)
	assert.Equal(t, entity.ReasonGroupClosed, entity.ReasonOf(err))
	assert.Equal(t, 0, dbtest.Uses(t, store, inv.Id))
}

func TestRedeemCompanyCode(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	pending := dbtest.Company(t, store, "Pending", entity.CompanyPending)
	inv := dbtest.Code(t, store, "COMP-2345", entity.ScopeCompany, company.Id, 5, 0, later)
	blocked := dbtest.Code(t, store, "PEND-2345", entity.ScopeCompany, pending.Id, 5, 0, later)
	user := dbtest.User(t, store, entity.RoleUser, "")

	red, err := linker.Redeem(ctx, "", inv.Code, user.Id)
	require.NoError(t, err)
	assert.Empty(t, red.GroupId)
	assert.Equal(t, company.Id, red.CompanyId)

	_, err = linker.Redeem(ctx, "", inv.Code, user.Id)
	assert.Equal(t, entity.ReasonAlreadyMember, entity.ReasonOf(err))

	other := dbtest.User(t, store, entity.RoleUser, "")
	_, err = linker.Redeem(ctx, "", blocked.Code, other.Id)
	assert.Equal(t, entity.ReasonDeactivated, entity.ReasonOf(err))
	assert.Equal(t, 0, dbtest.Uses(t, store, blocked.Id))
}

func TestRedeemUnusableCodes(t *testing.T) {
	linker, store := newLinker(t)
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	dbtest.Code(t, store, "EXPD-2345", entity.ScopeCompany, company.Id, 5, 0, dbtest.Now)
	user := dbtest.User(t, store, entity.RoleUser, "")

	cases := map[string]entity.Reason{
		"EXPD-2345": entity.ReasonExpired,
		"NONE-2345": entity.ReasonNotFound,
		"":          entity.ReasonValidation,
	}
	for code, reason := range cases {
		red, err := linker.Redeem(context.Background(), "", code, user.Id)
		assert.Equal(t, reason, entity.ReasonOf(err), code)
		require.NotNil(t, red)
		assert.Equal(t, entity.StateRejected, red.State)
	}

	_, err := linker.Redeem(context.Background(), "", "EXPD-2345", "no-such-user")
	assert.Equal(t, entity.ReasonNotFound, entity.ReasonOf(err))
}

// ABC-1234 at 49/50: valid, one redemption brings it to 50/50, the next fails.
func TestLastUseScenario(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	inv := dbtest.Code(t, store, "ABC-1234", entity.ScopeCompany, company.Id, 50, 49, later)

	result, err := invitation.New(store, nil, clock.Fixed(dbtest.Now), dbtest.Log()).Validate(ctx, "ABC-1234")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 1, result.RemainingUses)

	first := dbtest.User(t, store, entity.RoleUser, "")
	_, err = linker.Redeem(ctx, "", "ABC-1234", first.Id)
	require.NoError(t, err)
	assert.Equal(t, 50, dbtest.Uses(t, store, inv.Id))

	second := dbtest.User(t, store, entity.RoleUser, "")
	_, err = linker.Redeem(ctx, "", "ABC-1234", second.Id)
	assert.Equal(t, entity.ReasonUsageLimitReached, entity.ReasonOf(err))
	assert.Equal(t, 50, dbtest.Uses(t, store, inv.Id))
}

func TestConcurrentRedemptionOfSingleUseCode(t *testing.T) {
	linker, store := newLinker(t)
	group := dbtest.Group(t, store, "", 100, entity.GroupActive)
	inv := dbtest.Code(t, store, "ONCE-2345", entity.ScopeGroup, group.Id, 1, 0, later)

	const n = 12
	users := make([]*entity.User, n)
	for i := range users {
		users[i] = dbtest.User(t, store, entity.RoleUser, "")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	reasons := map[entity.Reason]int{}
	for _, user := range users {
		wg.Add(1)
		go func(userId string) {
			defer wg.Done()
			_, err := linker.Redeem(context.Background(), "", inv.Code, userId)
			mu.Lock()
			reasons[entity.ReasonOf(err)]++
			mu.Unlock()
		}(user.Id)
	}
	wg.Wait()

	assert.Equal(t, 1, reasons[""], "exactly one success")
	assert.Equal(t, n-1, reasons[entity.ReasonUsageLimitReached])
	assert.Equal(t, 1, dbtest.Uses(t, store, inv.Id))

	count, err := store.CountActiveMembers(context.Background(), group.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentRedemptionRespectsCapacity(t *testing.T) {
	linker, store := newLinker(t)
	group := dbtest.Group(t, store, "", 3, entity.GroupActive)
	inv := dbtest.Code(t, store, "CAPS-2345", entity.ScopeGroup, group.Id, 50, 0, later)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		user := dbtest.User(t, store, entity.RoleUser, "")
		wg.Add(1)
		go func(userId string) {
			defer wg.Done()
			_, _ = linker.Redeem(context.Background(), "", inv.Code, userId)
		}(user.Id)
	}
	wg.Wait()

	count, err := store.CountActiveMembers(context.Background(), group.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, dbtest.Uses(t, store, inv.Id), "uses match memberships")
}

func TestRegisterWithCode(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	inv := dbtest.Code(t, store, "REG1-2345", entity.ScopeCompany, company.Id, 5, 0, later)

	user := &entity.User{Email: "new@example.com", Name: "New", PasswordHash: "x"}
	red, err := linker.Register(ctx, user, "reg1-2345")
	require.NoError(t, err)
	assert.True(t, red.Success)
	assert.NotEmpty(t, user.Id)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.Equal(t, company.Id, user.CompanyId)
	assert.Equal(t, 1, dbtest.Uses(t, store, inv.Id))

	loaded, err := store.UserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, company.Id, loaded.CompanyId)
}

func TestRegisterRollsBackOnBadCode(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()
	company := dbtest.Company(t, store, "Acme", entity.CompanyActive)
	dbtest.Code(t, store, "USED-2345", entity.ScopeCompany, company.Id, 1, 1, later)

	user := &entity.User{Email: "late@example.com", Name: "Late", PasswordHash: "x"}
	red, err := linker.Register(ctx, user, "USED-2345")
	assert.Equal(t, entity.ReasonUsageLimitReached, entity.ReasonOf(err))
	assert.Equal(t, entity.StateRejected, red.State)

	loaded, err := store.UserByEmail(ctx, "late@example.com")
	require.NoError(t, err)
	assert.Nil(t, loaded, "user is not created")
}

func TestRegisterWithoutCode(t *testing.T) {
	linker, store := newLinker(t)
	ctx := context.Background()

	red, err := linker.Register(ctx, &entity.User{Email: "solo@example.com", Name: "Solo"}, "")
	require.NoError(t, err)
	assert.True(t, red.Success)
	assert.Empty(t, red.InvitationId)

	red, err = linker.Register(ctx, &entity.User{Email: "solo@example.com", Name: "Again"}, "")
	assert.Equal(t, entity.ReasonValidation, entity.ReasonOf(err))
	assert.Equal(t, entity.StateRejected, red.State)

	loaded, err := store.UserByEmail(ctx, "solo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Solo", loaded.Name)
}
