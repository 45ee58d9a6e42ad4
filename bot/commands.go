package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

const commandTimeout = 10 * time.Second

func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, fmt.Sprintf("This bot serves administrators only\\. Your chat id is `%d`\\.", chatId))
		return nil
	}
	t.plainResponse(chatId, "Notifications are enabled\\. Use /pending to review companies\\.")
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	var sb strings.Builder
	sb.WriteString("*Available Commands*\n\n")
	sb.WriteString("`/start` \\- Show your chat id\n")
	sb.WriteString("`/help` \\- Show this help\n")
	if t.isAdmin(chatId) {
		sb.WriteString("`/pending` \\- Companies waiting for approval\n")
	}

	t.plainResponse(chatId, sb.String())
	return nil
}

func (t *TgBot) pending(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.isAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required")
		return nil
	}
	reviewer := t.getReviewer()
	if reviewer == nil {
		t.plainResponse(chatId, "Review service is not connected")
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	companies, err := reviewer.PendingCompanies(c, actor(chatId))
	if err != nil {
		t.reportError(chatId, "pending", err)
		return nil
	}
	if len(companies) == 0 {
		t.plainResponse(chatId, "No companies are waiting for approval")
		return nil
	}
	for _, company := range companies {
		t.sendWithKeyboard(chatId, companyCard(company), reviewButtons(company.Id))
	}
	return nil
}
