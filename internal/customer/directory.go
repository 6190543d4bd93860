package customer

import (
	"fmt"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

// Directory is the read-only set of provisioned customers keyed by their
// six-digit code.
type Directory struct {
	byCode map[string]domain.Customer
}

func NewDirectory(customers []domain.Customer) *Directory {
	byCode := make(map[string]domain.Customer, len(customers))
	for _, c := range customers {
		byCode[c.Code] = c
	}
	return &Directory{byCode: byCode}
}

func (d *Directory) FindByCode(code string) (domain.Customer, error) {
	c, ok := d.byCode[code]
	if !ok {
		return domain.Customer{}, apperrors.NewNotFoundError(fmt.Sprintf("customer with code %s not found", code))
	}
	return c, nil
}

func (d *Directory) Len() int {
	return len(d.byCode)
}
