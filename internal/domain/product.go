package domain

// Product is one catalog entry. Some categories are priced per size; the
// base price applies to every other size.
type Product struct {
	ID         string           `json:"id" yaml:"id"`
	Name       string           `json:"name" yaml:"name"`
	Category   string           `json:"category" yaml:"category"`
	Price      int64            `json:"price" yaml:"price"`
	SizePrices map[string]int64 `json:"sizePrices,omitempty" yaml:"size_prices"`
	Disabled   bool             `json:"disabled" yaml:"disabled"`
}

func (p Product) PriceFor(size string) int64 {
	if v, ok := p.SizePrices[size]; ok {
		return v
	}
	return p.Price
}
