package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"courseadmin/entity"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// Callback data prefixes; the company id follows.
const (
	cbApprove = "ca:"
	cbReject  = "cr:"
)

const chatRejectionReason = "Rejected by administrator"

func reviewButtons(companyId string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{
				{Text: "Approve ✓", CallbackData: cbApprove + companyId},
				{Text: "Reject ✗", CallbackData: cbReject + companyId},
			},
		},
	}
}

func (t *TgBot) onApproveCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.review(ctx, cbApprove, func(c context.Context, r Reviewer, admin *entity.User, id string) (*entity.Decision, error) {
		return r.ApproveCompany(c, admin, id)
	})
}

func (t *TgBot) onRejectCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	return t.review(ctx, cbReject, func(c context.Context, r Reviewer, admin *entity.User, id string) (*entity.Decision, error) {
		return r.RejectCompany(c, admin, id, chatRejectionReason)
	})
}

type decideFunc func(c context.Context, r Reviewer, admin *entity.User, id string) (*entity.Decision, error)

// review runs a decision for the company named in the callback data and
// replaces the buttons with the outcome.
func (t *TgBot) review(ctx *ext.Context, prefix string, decide decideFunc) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	if !t.isAdmin(chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Admin access required", ShowAlert: true})
		return nil
	}
	reviewer := t.getReviewer()
	if reviewer == nil {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Review service is not connected", ShowAlert: true})
		return nil
	}

	companyId := strings.TrimPrefix(cq.Data, prefix)
	c, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	decision, err := decide(c, reviewer, actor(chatId), companyId)
	if err != nil {
		var failure *entity.Failure
		if errors.As(err, &failure) {
			_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: failure.Message, ShowAlert: true})
			return nil
		}
		t.reportError(chatId, "review", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	if msg := cq.Message; msg != nil {
		if im, ok := msg.(tgbotapi.Message); ok {
			_, _, _ = t.api.EditMessageText(
				fmt.Sprintf("%s\n\n%s", Sanitize(im.Text), Sanitize(decision.Message)),
				&tgbotapi.EditMessageTextOpts{
					ChatId:    chatId,
					MessageId: im.MessageId,
					ParseMode: "MarkdownV2",
				},
			)
		}
	}

	_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: decision.Message})
	return nil
}
