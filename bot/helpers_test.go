package bot

import (
	"strings"
	"testing"

	"courseadmin/entity"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "ABC\\-1234", Sanitize("ABC-1234"))
	assert.Equal(t, "a\\_b \\(c\\)\\.", Sanitize("a_b (c)."))
	assert.Equal(t, "plain", Sanitize("plain"))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	text := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	parts := splitMessage(text, 10)
	assert.Equal(t, []string{"aaaaaa\n", "bbbbbb"}, parts)
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestCompanyCard(t *testing.T) {
	card := companyCard(&entity.Company{
		CompanyName:  "Acme Sp. z o.o.",
		TaxNumber:    "PL123",
		Country:      "PL",
		ContactName:  "Jan",
		ContactEmail: "jan@acme.pl",
	})
	assert.Contains(t, card, "*Acme Sp\\. z o\\.o\\.*")
	assert.Contains(t, card, "jan@acme\\.pl")
	assert.NotContains(t, card, "Phone")
}

func TestReviewButtons(t *testing.T) {
	kb := reviewButtons("c-1")
	assert.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, cbApprove+"c-1", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, cbReject+"c-1", kb.InlineKeyboard[0][1].CallbackData)
}

func TestActorIsAdmin(t *testing.T) {
	a := actor(42)
	assert.True(t, a.IsAdmin())
	assert.Equal(t, "telegram:42", a.Id)
}
