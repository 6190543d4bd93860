package cart

import (
	"context"

	"decobot/internal/domain"
)

type Repository interface {
	Load(ctx context.Context, chatID int64) ([]domain.LineItem, error)
	Save(ctx context.Context, chatID int64, items []domain.LineItem) error
	Delete(ctx context.Context, chatID int64) error
}
