package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"decobot/internal/chat"
)

const telegramTimeout = 15 * time.Second

// TelegramTransport delivers rendered messages through the Bot API.
type TelegramTransport struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramTransport connects to the Bot API at baseURL. The token is
// checked with getMe before the transport is returned.
func NewTelegramTransport(baseURL, token string) (*TelegramTransport, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/bot%s/%s"
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: telegramTimeout})
	if err != nil {
		return nil, fmt.Errorf("connecting to bot api: %w", err)
	}
	return &TelegramTransport{bot: bot}, nil
}

// Username is the bot account the token belongs to.
func (t *TelegramTransport) Username() string {
	return t.bot.Self.UserName
}

func (t *TelegramTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := toMarkup(keyboard); markup != nil {
		msg.ReplyMarkup = *markup
	}
	return t.send(ctx, "sendMessage", msg)
}

func (t *TelegramTransport) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, keyboard chat.Keyboard) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoRef))
	photo.Caption = caption
	if markup := toMarkup(keyboard); markup != nil {
		photo.ReplyMarkup = *markup
	}
	return t.send(ctx, "sendPhoto", photo)
}

func (t *TelegramTransport) send(ctx context.Context, method string, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Request(c); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%s rejected (code %d): %w", method, apiErr.Code, err)
		}
		return fmt.Errorf("calling %s: %w", method, err)
	}
	return nil
}

func toMarkup(keyboard chat.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if keyboard.Empty() {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
