package product

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

// Service resolves catalog products and prices cart lines from them.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetProductsByIDs returns the enabled products among ids, plus the ids that
// matched nothing. Disabled products count as not found.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, []string, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	found := make([]domain.Product, 0, len(products))
	foundSet := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.Disabled {
			continue
		}
		found = append(found, p)
		foundSet[p.ID] = struct{}{}
	}

	var notFoundIDs []string
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}

// LineItem builds a cart line priced from the catalog at call time.
func (s *Service) LineItem(ctx context.Context, productID, size string, qty int) (domain.LineItem, error) {
	found, _, err := s.GetProductsByIDs(ctx, []string{productID})
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("looking up product %s: %w", productID, err)
	}
	if len(found) == 0 {
		return domain.LineItem{}, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", productID))
	}

	p := found[0]
	s.logger.Debug("priced cart line",
		zap.String("productId", p.ID),
		zap.String("size", size),
		zap.Int64("unitPrice", p.PriceFor(size)))

	return domain.LineItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Size:        size,
		Quantity:    qty,
		UnitPrice:   p.PriceFor(size),
	}, nil
}
