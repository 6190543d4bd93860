package cart

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

type Service struct {
	repo     Repository
	maxItems int
	logger   *zap.Logger

	mu sync.Mutex
}

func NewService(repo Repository, maxItems int, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		maxItems: maxItems,
		logger:   logger,
	}
}

// Add merges the item into the cart. Lines with the same product and size
// are combined; a new line past the max-items ceiling is rejected.
func (s *Service) Add(ctx context.Context, chatID int64, item domain.LineItem) ([]domain.LineItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.repo.Load(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	merged := false
	for i := range items {
		if items[i].ProductID == item.ProductID && items[i].Size == item.Size {
			items[i].Quantity += item.Quantity
			items[i].UnitPrice = item.UnitPrice
			merged = true
			break
		}
	}

	if !merged {
		if s.maxItems > 0 && len(items) >= s.maxItems {
			return nil, apperrors.NewValidationError("cart is full", apperrors.ValidationDetail{
				Field:   "items",
				Message: fmt.Sprintf("cart cannot hold more than %d lines", s.maxItems),
			})
		}
		items = append(items, item)
	}

	if err := s.repo.Save(ctx, chatID, items); err != nil {
		return nil, fmt.Errorf("saving cart: %w", err)
	}

	s.logger.Debug("cart updated", zap.Int64("chatId", chatID), zap.String("productId", item.ProductID), zap.Int("lines", len(items)))
	return items, nil
}

func (s *Service) Items(ctx context.Context, chatID int64) ([]domain.LineItem, error) {
	return s.repo.Load(ctx, chatID)
}

func (s *Service) Clear(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Delete(ctx, chatID)
}

func validateItem(item domain.LineItem) error {
	var details []apperrors.ValidationDetail

	if item.ProductID == "" {
		details = append(details, apperrors.ValidationDetail{Field: "productId", Message: "productId is required"})
	}
	if item.Quantity < 1 || item.Quantity > 10000 {
		details = append(details, apperrors.ValidationDetail{Field: "quantity", Message: "quantity must be between 1 and 10000"})
	}
	if item.UnitPrice < 0 {
		details = append(details, apperrors.ValidationDetail{Field: "unitPrice", Message: "unitPrice must be non-negative"})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid cart item", details...)
	}
	return nil
}
