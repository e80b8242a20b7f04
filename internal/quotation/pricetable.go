package quotation

import (
	"strings"

	"github.com/shopspring/decimal"

	"cctvstore/backend/internal/domain"
)

// Price is one priced option. HD and IP are only set for options whose price
// depends on the system type.
type Price struct {
	Label string
	Flat  decimal.NullDecimal
	HD    decimal.NullDecimal
	IP    decimal.NullDecimal
}

// ForKind resolves the kind-specific price, falling back to the flat price.
func (p Price) ForKind(kind CameraKind) (decimal.Decimal, bool) {
	switch kind {
	case KindHD:
		if p.HD.Valid {
			return p.HD.Decimal, true
		}
	case KindIP:
		if p.IP.Valid {
			return p.IP.Decimal, true
		}
	}
	if p.Flat.Valid {
		return p.Flat.Decimal, true
	}
	return decimal.Zero, false
}

// Unit resolves a price that does not depend on the system type.
func (p Price) Unit() (decimal.Decimal, bool) {
	if p.Flat.Valid {
		return p.Flat.Decimal, true
	}
	return decimal.Zero, false
}

type category struct {
	order []string
	rows  map[string]Price
}

func newCategory(options []domain.PriceOption, key func(domain.PriceOption) string) category {
	c := category{rows: make(map[string]Price, len(options))}
	for _, opt := range options {
		label := strings.TrimSpace(key(opt))
		k := normalizeKey(label)
		if k == "" {
			continue
		}
		// first row wins when labels normalize to the same key
		if _, dup := c.rows[k]; dup {
			continue
		}
		c.order = append(c.order, label)
		c.rows[k] = Price{Label: label, Flat: opt.Price, HD: opt.HDPrice, IP: opt.IPPrice}
	}
	return c
}

func (c category) lookup(label string) (Price, bool) {
	p, ok := c.rows[normalizeKey(label)]
	return p, ok
}

func (c category) labels() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// PriceTable is an immutable, normalized snapshot of every quotation price
// category. Build one with NewPriceTable.
type PriceTable struct {
	doc         domain.PriceTableDocument
	cameraTypes category
	brands      category
	channels    category
	pixels      category
	techTypes   category
	storage     category
	cables      category
	accessories category
}

func NewPriceTable(doc domain.PriceTableDocument) *PriceTable {
	byName := func(o domain.PriceOption) string { return o.Name }
	storageKey := func(o domain.PriceOption) string {
		if strings.TrimSpace(o.Capacity) != "" {
			return o.Capacity
		}
		return o.Name
	}
	channelKey := func(o domain.PriceOption) string {
		if o.ChannelCount != "" {
			return o.ChannelCount.String()
		}
		return o.Name
	}

	return &PriceTable{
		doc:         doc,
		cameraTypes: newCategory(doc.CameraTypes, byName),
		brands:      newCategory(doc.Brands, byName),
		channels:    newCategory(doc.Channels, channelKey),
		pixels:      newCategory(doc.Pixels, byName),
		techTypes:   newCategory(doc.TechTypes, byName),
		storage:     newCategory(doc.Storage, storageKey),
		cables:      newCategory(doc.Cables, byName),
		accessories: newCategory(doc.Accessories, byName),
	}
}

// Document returns the wire form the table was built from.
func (t *PriceTable) Document() domain.PriceTableDocument {
	return t.doc
}

// CameraType finds the base price of a camera type, first by exact label and
// then by any row of the same kind.
func (t *PriceTable) CameraType(label string) (Price, bool) {
	if p, ok := t.cameraTypes.lookup(label); ok {
		return p, true
	}
	kind := KindOf(label)
	if kind == KindNone {
		return Price{}, false
	}
	for _, candidate := range t.cameraTypes.order {
		if KindOf(candidate) == kind {
			return t.cameraTypes.lookup(candidate)
		}
	}
	return Price{}, false
}

func (t *PriceTable) Brand(label string) (Price, bool)     { return t.brands.lookup(label) }
func (t *PriceTable) Channel(label string) (Price, bool)   { return t.channels.lookup(label) }
func (t *PriceTable) Pixel(label string) (Price, bool)     { return t.pixels.lookup(label) }
func (t *PriceTable) TechType(label string) (Price, bool)  { return t.techTypes.lookup(label) }
func (t *PriceTable) Storage(label string) (Price, bool)   { return t.storage.lookup(label) }
func (t *PriceTable) Cable(label string) (Price, bool)     { return t.cables.lookup(label) }
func (t *PriceTable) Accessory(label string) (Price, bool) { return t.accessories.lookup(label) }

// Accessories lists every accessory row in table order.
func (t *PriceTable) Accessories() []Price {
	out := make([]Price, 0, len(t.accessories.order))
	for _, label := range t.accessories.order {
		p, _ := t.accessories.lookup(label)
		out = append(out, p)
	}
	return out
}

func (t *PriceTable) TechTypes() []string { return t.techTypes.labels() }
func (t *PriceTable) Pixels() []string    { return t.pixels.labels() }
func (t *PriceTable) Channels() []string  { return t.channels.labels() }

// DefaultBucket is the tech type / pixel tier pair a bulk zone total
// collapses into: the first row of each category.
func (t *PriceTable) DefaultBucket() (techType string, pixel string) {
	techType, pixel = "Standard", "2MP"
	if len(t.techTypes.order) > 0 {
		techType = t.techTypes.order[0]
	}
	if len(t.pixels.order) > 0 {
		pixel = t.pixels.order[0]
	}
	return techType, pixel
}
