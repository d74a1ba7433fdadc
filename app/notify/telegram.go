// Package notify posts new articles to chats.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Semior001/newsagg/app/store"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/exp/slog"
)

//go:generate moq -out mock_sender.go . Sender

// Sender sends messages to telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts articles to a telegram chat or channel.
type Telegram struct {
	log    *slog.Logger
	api    Sender
	chatID string
}

// NewTelegram makes a telegram bot api client and returns the notifier
// for the chat. Chat is either a numeric id or a channel username with "@".
func NewTelegram(lg *slog.Logger, token, chatID string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("make new api: %w", err)
	}

	stdlibLogger := slog.NewLogLogger(lg.Handler(), slog.LevelWarn)
	stdlibLogger.SetPrefix("telegram-bot-api: ")

	if err = tgbotapi.SetLogger(stdlibLogger); err != nil {
		return nil, fmt.Errorf("set logger: %w", err)
	}

	return NewTelegramWithSender(lg, api, chatID), nil
}

// NewTelegramWithSender returns the notifier that sends via the given sender.
func NewTelegramWithSender(lg *slog.Logger, api Sender, chatID string) *Telegram {
	return &Telegram{log: lg, api: api, chatID: chatID}
}

// Notify sends a message per article. Failed messages don't stop the rest.
func (t *Telegram) Notify(ctx context.Context, articles []store.Article) error {
	var errs []error
	for _, a := range articles {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := t.message(a)
		if err != nil {
			return err
		}

		if _, err = t.api.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("send article %s: %w", a.ID, err))
			continue
		}

		t.log.DebugCtx(ctx, "sent article", slog.String("id", a.ID), slog.String("chat", t.chatID))
	}

	return errors.Join(errs...)
}

func (t *Telegram) message(a store.Article) (tgbotapi.MessageConfig, error) {
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(t.chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(t.chatID, format(a))
	} else {
		chatID, err := strconv.ParseInt(t.chatID, 10, 64)
		if err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("parse chat id: %w", err)
		}
		msg = tgbotapi.NewMessage(chatID, format(a))
	}

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg, nil
}

func format(a store.Article) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeHTML, s) }

	sb := &strings.Builder{}
	sb.WriteString("<b>" + esc(a.Title) + "</b>\n")

	var meta []string
	for _, s := range []string{a.Source, a.Category, a.Author} {
		if s != "" {
			meta = append(meta, esc(s))
		}
	}
	if !a.PublishedAt.IsZero() {
		meta = append(meta, a.PublishedAt.Format("2006-01-02 15:04"))
	}
	if len(meta) > 0 {
		sb.WriteString("<i>" + strings.Join(meta, " · ") + "</i>\n")
	}

	if a.Excerpt != "" {
		sb.WriteString("\n" + esc(a.Excerpt) + "\n")
	}

	if a.URL != "" {
		sb.WriteString("\n<a href=\"" + esc(a.URL) + "\">read more</a>")
	}

	return sb.String()
}
