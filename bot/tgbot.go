// Package bot sends admin notifications to Telegram and lets admins review
// pending company registrations from the chat.
//
//   - tgbot.go     TgBot lifecycle (Start/Stop), admin chat list, Reviewer hook
//   - commands.go  /start, /help, /pending
//   - callbacks.go approve/reject buttons under each pending company
//   - messaging.go log forwarding and admin notifications
//   - helpers.go   Sanitize, plainResponse, keyboards
//
// Only chats listed in telegram.admin_chat_ids are served. The bot acts on
// behalf of a synthetic admin actor "telegram:<chat id>".
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"courseadmin/entity"
	"courseadmin/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
)

// Reviewer is the company approval workflow as seen from the chat.
type Reviewer interface {
	PendingCompanies(ctx context.Context, actor *entity.User) ([]*entity.Company, error)
	ApproveCompany(ctx context.Context, actor *entity.User, id string) (*entity.Decision, error)
	RejectCompany(ctx context.Context, actor *entity.User, id, reason string) (*entity.Decision, error)
}

type TgBot struct {
	log         *slog.Logger
	api         *tgbotapi.Bot
	mu          sync.RWMutex // guards reviewer
	reviewer    Reviewer
	adminIds    []int64
	minLogLevel slog.Level
	updater     *ext.Updater
}

var commands = []tgbotapi.BotCommand{
	{Command: "pending", Description: "List companies waiting for approval"},
	{Command: "help", Description: "Show available commands"},
}

func NewTgBot(apiKey string, adminIds []int64, log *slog.Logger) (*TgBot, error) {
	tgBot := &TgBot{
		log:         log.With(sl.Module("tgbot")),
		adminIds:    slices.Clone(adminIds),
		minLogLevel: slog.LevelDebug,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) SetReviewer(reviewer Reviewer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reviewer = reviewer
}

func (t *TgBot) Start() error {
	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("start", t.start))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("pending", t.pending))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbApprove), t.onApproveCallback))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbReject), t.onRejectCallback))

	_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", sl.Err(err))
	}

	err = t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}

func (t *TgBot) isAdmin(chatId int64) bool {
	return slices.Contains(t.adminIds, chatId)
}

// actor is the admin identity recorded as reviewer of decisions made in chat.
func actor(chatId int64) *entity.User {
	return &entity.User{
		Id:   fmt.Sprintf("telegram:%d", chatId),
		Name: "Telegram admin",
		Role: entity.RoleAdmin,
	}
}

func (t *TgBot) getReviewer() Reviewer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reviewer
}
