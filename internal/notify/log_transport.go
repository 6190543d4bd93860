package notify

import (
	"context"

	"go.uber.org/zap"

	"decobot/internal/chat"
)

// LogTransport writes outbound messages to the log instead of a chat
// network. Used in development and when no transport is configured.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) error {
	t.logger.Info("outbound message",
		zap.Int64("chatId", chatID),
		zap.String("text", text),
		zap.Int("buttons", len(keyboard.Buttons())),
	)
	return nil
}

func (t *LogTransport) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, keyboard chat.Keyboard) error {
	t.logger.Info("outbound photo",
		zap.Int64("chatId", chatID),
		zap.String("photoRef", photoRef),
		zap.String("caption", caption),
		zap.Int("buttons", len(keyboard.Buttons())),
	)
	return nil
}
