package catalog

import (
	"fmt"

	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/pricing"
)

// EditProduct applies the supplied fields to the product with id. When price,
// quantity or factor is among them, both derived prices are recomputed from
// the product's resulting values. Values are not validated here; see ApplyEdit.
func (c *Catalog) EditProduct(id int64, edit model.ProductEdit) (model.Product, error) {
	i := c.indexOf(id)
	if i < 0 {
		return model.Product{}, fmt.Errorf("edit product %d: %w", id, ErrProductNotFound)
	}

	p := &c.products[i]
	if edit.Name != nil {
		p.Name = *edit.Name
	}
	if edit.OriginalPrice != nil {
		p.OriginalPrice = *edit.OriginalPrice
	}
	if edit.OriginalQuantity != nil {
		p.OriginalQuantity = *edit.OriginalQuantity
	}
	if edit.Unit != nil {
		p.Unit = *edit.Unit
	}
	if edit.LargeUnit != nil {
		p.LargeUnit = *edit.LargeUnit
	}
	if edit.Factor != nil {
		p.Factor = *edit.Factor
	}
	if edit.Reprices() {
		p.PricePerUnit, p.PricePerLarge = pricing.Compute(p.OriginalPrice, p.OriginalQuantity, p.Factor)
	}

	c.persist()
	return *p, nil
}

// ApplyEdit is the user-facing edit: supplied price, quantity and factor must
// be positive finite numbers. A rejected edit changes nothing.
func (c *Catalog) ApplyEdit(id int64, edit model.ProductEdit) (model.Product, error) {
	if edit.OriginalPrice != nil && !pricing.ValidAmount(*edit.OriginalPrice) {
		c.notifier.Notice(NoticeInvalidPrice)
		return model.Product{}, ErrInvalidPrice
	}
	if edit.OriginalQuantity != nil && !pricing.ValidAmount(*edit.OriginalQuantity) {
		c.notifier.Notice(NoticeInvalidQuantity)
		return model.Product{}, ErrInvalidQuantity
	}
	if edit.Factor != nil && !pricing.ValidAmount(*edit.Factor) {
		c.notifier.Notice(NoticeInvalidFactor)
		return model.Product{}, ErrInvalidFactor
	}
	return c.EditProduct(id, edit)
}
