// Package telegram is the Telegram transport: bot commands via long polling,
// HTML replies and document uploads.
package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/afero"

	"github.com/coah80/appxzip/internal/commands"
	"github.com/coah80/appxzip/internal/credentials"
	"github.com/coah80/appxzip/internal/logging"
)

const (
	platform       = "telegram"
	pollTimeoutSec = 60
	// Bot API upload cap for documents.
	maxDocumentSize = 50 * 1024 * 1024
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	handler *commands.Handler
	fs      afero.Fs
	logger  *log.Logger
}

func New(token string, handler *commands.Handler, fs afero.Fs, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Bot{
		api:     api,
		handler: handler,
		fs:      fs,
		logger:  logging.OrDefault(logger).With("platform", platform),
	}, nil
}

func (b *Bot) Platform() string { return platform }

// Start begins long polling. Each command runs in its own goroutine.
func (b *Bot) Start() error {
	b.logger.Info("Bot logged in", "user", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSec
	updates := b.api.GetUpdatesChan(u)

	go func() {
		for upd := range updates {
			b.dispatch(b.api, upd)
		}
	}()
	return nil
}

// Stop ends polling. Commands already running are not waited for.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) dispatch(s sender, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}

	user := commands.User{
		Key:         credentials.UserKey(platform, strconv.FormatInt(msg.From.ID, 10)),
		DisplayName: fullName(msg.From),
	}
	r := &chatResponder{sender: s, chatID: msg.Chat.ID, fs: b.fs}
	args := msg.CommandArguments()

	var run func(ctx context.Context)
	switch msg.Command() {
	case "start":
		run = func(ctx context.Context) { b.handler.Start(ctx, user, r) }
	case "set_api_token":
		run = func(ctx context.Context) { b.handler.SetToken(ctx, user, args, r) }
	case "download":
		run = func(ctx context.Context) { b.handler.Download(ctx, user, args, r) }
	default:
		b.logger.Debug("Ignoring unknown command", "command", msg.Command())
		return
	}
	go run(context.Background())
}

func fullName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
