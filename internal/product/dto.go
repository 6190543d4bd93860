package product

type SearchProductsRequest struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,max=100,dive,required,max=64"`
	Size       string   `json:"size,omitempty" validate:"omitempty,max=32"`
}

type SearchProductsResponse struct {
	Products []ProductDTO `json:"products"`
	NotFound []string     `json:"notFound"`
}

type ProductDTO struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	Price      int64            `json:"price"`
	SizePrices map[string]int64 `json:"sizePrices,omitempty"`
	// UnitPrice is the price for the requested size, when one was given.
	UnitPrice *int64 `json:"unitPrice,omitempty"`
}
