package bot

import (
	"fmt"
	"log/slog"

	"courseadmin/entity"
)

func (t *TgBot) SetMinLogLevel(level slog.Level) {
	t.minLogLevel = level
}

func (t *TgBot) SendMessage(msg string) {
	t.SendMessageWithLevel(msg, t.minLogLevel)
}

// SendMessageWithLevel forwards a formatted log record to every admin chat
// if level is at least the configured minimum.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < t.minLogLevel {
		return
	}
	t.notifyAdmins(msg)
}

// CompanyRegistered asks admins to review a new company.
func (t *TgBot) CompanyRegistered(company *entity.Company) {
	text := fmt.Sprintf("New company registration\n\n%s", companyCard(company))
	for _, id := range t.adminIds {
		t.sendWithKeyboard(id, text, reviewButtons(company.Id))
	}
}

// CompanyReviewed reports a decision made through the API.
func (t *TgBot) CompanyReviewed(decision *entity.Decision) {
	if decision == nil || !decision.Changed {
		return
	}
	t.notifyAdmins(fmt.Sprintf("%s: *%s*", Sanitize(decision.Message), Sanitize(decision.Company.CompanyName)))
}

func (t *TgBot) notifyAdmins(msg string) {
	for _, id := range t.adminIds {
		t.plainResponse(id, msg)
	}
}
