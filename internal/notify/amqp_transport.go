package notify

import (
	"context"
	"time"

	"decobot/internal/chat"
)

type Publisher interface {
	PublishJSON(payload interface{}) error
}

// OutboundMessage is the wire shape consumed by the chat gateway.
type OutboundMessage struct {
	Method   string        `json:"method"`
	ChatID   int64         `json:"chatId"`
	Text     string        `json:"text,omitempty"`
	PhotoRef string        `json:"photo,omitempty"`
	Caption  string        `json:"caption,omitempty"`
	Keyboard chat.Keyboard `json:"keyboard,omitempty"`
	SentAt   time.Time     `json:"sentAt"`
}

// AMQPTransport hands messages to a gateway process through a broker queue.
type AMQPTransport struct {
	publisher Publisher
	now       func() time.Time
}

func NewAMQPTransport(publisher Publisher) *AMQPTransport {
	return &AMQPTransport{publisher: publisher, now: time.Now}
}

func (t *AMQPTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.publisher.PublishJSON(OutboundMessage{
		Method:   "sendMessage",
		ChatID:   chatID,
		Text:     text,
		Keyboard: keyboard,
		SentAt:   t.now().UTC(),
	})
}

func (t *AMQPTransport) SendPhoto(ctx context.Context, chatID int64, photoRef, caption string, keyboard chat.Keyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.publisher.PublishJSON(OutboundMessage{
		Method:   "sendPhoto",
		ChatID:   chatID,
		PhotoRef: photoRef,
		Caption:  caption,
		Keyboard: keyboard,
		SentAt:   t.now().UTC(),
	})
}
