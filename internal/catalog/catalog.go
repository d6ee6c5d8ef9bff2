// Package catalog owns the product list of the active comparison.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pamdev00/price/internal/ids"
	"github.com/pamdev00/price/internal/model"
	"github.com/pamdev00/price/internal/notify"
	"github.com/pamdev00/price/internal/pricing"
	"github.com/pamdev00/price/internal/store"
	"github.com/pamdev00/price/internal/undo"
)

var (
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidFactor   = errors.New("invalid unit factor")
	ErrProductNotFound = errors.New("product not found")
)

// Notices shown to the user.
const (
	NoticeInvalidPrice    = "Enter a valid price"
	NoticeInvalidQuantity = "Enter a valid quantity"
	NoticeInvalidFactor   = "Enter a valid unit factor"
	NoticeStorageFull     = "Not enough storage space. Try deleting old comparisons."
	NoticeAllDeleted      = "All products deleted"
)

// UsageRecorder is told about every successfully added product.
type UsageRecorder interface {
	RecordUsage(name, unit, largeUnit string, factor float64)
}

// Config wires a Catalog to its collaborators. Only Gateway is required.
type Config struct {
	Gateway    store.Gateway
	Codec      store.Codec
	Templates  UsageRecorder
	Notifier   notify.Notifier
	IDs        *ids.Sequence
	Clock      func() time.Time
	UndoWindow time.Duration
	Logger     *slog.Logger
}

// removal is what a pending undo needs to reverse a delete or a clear.
type removal struct {
	products  []model.Product
	index     int
	all       bool
	onChanged func()
}

// Catalog is the ordered product list of the current comparison. It is not
// safe for concurrent use; callers serialize access.
type Catalog struct {
	gw        store.Gateway
	codec     store.Codec
	templates UsageRecorder
	notifier  notify.Notifier
	ids       *ids.Sequence
	logger    *slog.Logger

	products []model.Product
	unit     model.Unit
	sortMode SortMode
	pending  *undo.Ledger[removal]
}

// New loads the stored product list and returns a Catalog that owns it.
func New(cfg Config) (*Catalog, error) {
	if cfg.Codec == nil {
		cfg.Codec = store.JSON{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.IDs == nil {
		cfg.IDs = ids.NewSequence(cfg.Clock)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	products, err := store.Load[model.Product](cfg.Gateway, cfg.Codec, store.KeyProducts)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, p := range products {
		cfg.IDs.Observe(p.ID)
		cfg.IDs.Observe(p.AddedAt)
	}

	return &Catalog{
		gw:        cfg.Gateway,
		codec:     cfg.Codec,
		templates: cfg.Templates,
		notifier:  cfg.Notifier,
		ids:       cfg.IDs,
		logger:    cfg.Logger.With("component", "catalog"),
		products:  products,
		unit:      model.DefaultUnit,
		sortMode:  SortByPrice,
		pending:   undo.NewLedger[removal](cfg.UndoWindow, cfg.Clock),
	}, nil
}

// ActiveUnit returns the unit applied to newly added products.
func (c *Catalog) ActiveUnit() model.Unit {
	return c.unit
}

// SetActiveUnit changes the unit for subsequently added products. Existing
// products keep the unit they were added with.
func (c *Catalog) SetActiveUnit(u model.Unit) error {
	if !pricing.ValidAmount(u.Factor) {
		return fmt.Errorf("set unit %q: %w", u.Symbol, ErrInvalidFactor)
	}
	c.unit = u
	return nil
}

// GetAll returns a copy of the products in insertion order.
func (c *Catalog) GetAll() []model.Product {
	return model.CloneProducts(c.products)
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Get returns the product with id.
func (c *Catalog) Get(id int64) (model.Product, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return model.Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) indexOf(id int64) int {
	for i, p := range c.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// AddProduct validates price and quantity, prices the product in the active
// unit and appends it. Invalid input changes nothing and is reported both as
// the returned error and as a notice naming the field.
func (c *Catalog) AddProduct(name string, price, quantity float64) (model.Product, error) {
	if !pricing.ValidAmount(price) {
		c.notifier.Notice(NoticeInvalidPrice)
		return model.Product{}, ErrInvalidPrice
	}
	if !pricing.ValidAmount(quantity) {
		c.notifier.Notice(NoticeInvalidQuantity)
		return model.Product{}, ErrInvalidQuantity
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Item %d", len(c.products)+1)
	}

	perUnit, perLarge := pricing.Compute(price, quantity, c.unit.Factor)
	id := c.ids.Next()
	p := model.Product{
		ID:               id,
		Name:             name,
		OriginalPrice:    price,
		OriginalQuantity: quantity,
		Unit:             c.unit.Symbol,
		LargeUnit:        c.unit.LargeSymbol,
		Factor:           c.unit.Factor,
		PricePerUnit:     perUnit,
		PricePerLarge:    perLarge,
		AddedAt:          id,
	}

	c.products = append(c.products, p)
	c.persist()

	if c.templates != nil {
		c.templates.RecordUsage(p.Name, p.Unit, p.LargeUnit, p.Factor)
	}

	c.logger.Debug("product added", "id", p.ID, "name", p.Name, "price_per_unit", p.PricePerUnit)
	return p, nil
}

// DeleteProduct removes the product with id and offers an undo that puts it
// back at the same position. Deleting an unknown id does nothing and reports false.
func (c *Catalog) DeleteProduct(id int64, onChanged func()) (undo.Handle, bool) {
	i := c.indexOf(id)
	if i < 0 {
		return undo.Handle{}, false
	}

	removed := c.products[i]
	c.products = append(c.products[:i:i], c.products[i+1:]...)
	c.persist()
	notifyChanged(onChanged)

	h := c.pending.Push(removal{
		products:  []model.Product{removed},
		index:     i,
		onChanged: onChanged,
	})
	c.notifier.OfferUndo(fmt.Sprintf("%q deleted", removed.Name), h)
	c.logger.Debug("product deleted", "id", id, "undo", h.ID)
	return h, true
}

// ClearAll empties the list and offers an undo that restores it as it was.
// An empty list is left alone and reports false.
func (c *Catalog) ClearAll(onChanged func()) (undo.Handle, bool) {
	if len(c.products) == 0 {
		return undo.Handle{}, false
	}

	backup := c.products
	c.products = []model.Product{}
	c.persist()
	notifyChanged(onChanged)

	h := c.pending.Push(removal{
		products:  backup,
		all:       true,
		onChanged: onChanged,
	})
	c.notifier.OfferUndo(NoticeAllDeleted, h)
	c.logger.Debug("products cleared", "count", len(backup), "undo", h.ID)
	return h, true
}

// Undo reverses the delete or clear identified by handleID if its window is
// still open. It reports false for unknown or expired handles.
//
// Undoing a clear replaces the whole list with the cleared one, discarding
// anything added since.
func (c *Catalog) Undo(handleID string) bool {
	rec, ok := c.pending.Take(handleID)
	if !ok {
		return false
	}

	if rec.all {
		c.products = model.CloneProducts(rec.products)
	} else {
		i := min(rec.index, len(c.products))
		c.products = append(c.products[:i:i], append(model.CloneProducts(rec.products), c.products[i:]...)...)
	}
	c.persist()
	notifyChanged(rec.onChanged)

	c.logger.Debug("undo applied", "undo", handleID, "restored", len(rec.products))
	return true
}

// SweepUndo drops expired undo records and returns their handles.
func (c *Catalog) SweepUndo() []undo.Handle {
	return c.pending.Sweep()
}

// PendingUndo returns the handles that can still be undone.
func (c *Catalog) PendingUndo() []undo.Handle {
	return c.pending.Pending()
}

// ReplaceAll swaps in products as the new list, as when a saved session is
// loaded. The active unit and sort mode are kept.
func (c *Catalog) ReplaceAll(products []model.Product) {
	c.products = model.CloneProducts(products)
	for _, p := range c.products {
		c.ids.Observe(p.ID)
		c.ids.Observe(p.AddedAt)
	}
	c.persist()
}

// persist writes the full list. Failure is reported to the user but leaves the
// in-memory list as it is.
func (c *Catalog) persist() {
	if err := store.Save(c.gw, c.codec, store.KeyProducts, c.products); err != nil {
		c.logger.Warn("persist products", "count", len(c.products), "error", err)
		c.notifier.Notice(NoticeStorageFull)
	}
}

func notifyChanged(fn func()) {
	if fn != nil {
		fn()
	}
}
