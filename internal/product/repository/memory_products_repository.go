package repository

import (
	"context"
	"sort"

	"decobot/internal/domain"
)

// MemoryRepository serves a catalog loaded once from reference data.
type MemoryRepository struct {
	products map[string]domain.Product
}

func NewMemoryRepository(products []domain.Product) *MemoryRepository {
	m := make(map[string]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &MemoryRepository{products: m}
}

func (r *MemoryRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var products []domain.Product
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.products[id]; ok {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}
