package quotation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Installation is charged per camera, with a cheaper rate above the
// breakpoint.
const (
	InstallationRate     = 400
	InstallationBulkRate = 350
	InstallationBulkOver = 8
)

const (
	TermCameraType   = "camera_type"
	TermBrand        = "brand"
	TermChannel      = "channel"
	TermCameras      = "cameras"
	TermStorage      = "storage"
	TermCable        = "cable"
	TermAccessories  = "accessories"
	TermInstallation = "installation"
)

var termOrder = []string{
	TermCameraType,
	TermBrand,
	TermChannel,
	TermCameras,
	TermStorage,
	TermCable,
	TermAccessories,
	TermInstallation,
}

// Mode selects how the evaluator treats options the price table does not
// price.
type Mode int

const (
	// Lenient prices missing options at zero and lists them in Quote.Missing.
	Lenient Mode = iota
	// Strict refuses to quote when anything referenced is missing.
	Strict
)

type Term struct {
	Name   string
	Amount decimal.Decimal
}

type Quote struct {
	Terms        []Term
	Sum          decimal.Decimal
	Total        int64
	TotalCameras int
	Missing      []string
}

// Term returns the amount of the named term, zero if absent.
func (q Quote) Term(name string) decimal.Decimal {
	for _, t := range q.Terms {
		if t.Name == name {
			return t.Amount
		}
	}
	return decimal.Zero
}

type Evaluator struct {
	Mode Mode
}

func NewEvaluator(mode Mode) Evaluator {
	return Evaluator{Mode: mode}
}

// Evaluate is the lenient total of a configuration.
func Evaluate(cfg Configuration, table *PriceTable) int64 {
	q, _ := Evaluator{Mode: Lenient}.Quote(cfg, table)
	return q.Total
}

// Quote computes every term from scratch and rounds the sum once.
func (e Evaluator) Quote(cfg Configuration, table *PriceTable) (Quote, error) {
	q := Quote{TotalCameras: cfg.TotalCameras()}
	amounts := make(map[string]decimal.Decimal, len(termOrder))

	if strings.TrimSpace(cfg.CameraType) != "" {
		m := &missingSet{}
		kind := cfg.Kind()

		amounts[TermCameraType] = cameraTypeCost(cfg, table, kind, m)
		amounts[TermBrand] = brandCost(cfg, table, kind, m)
		amounts[TermChannel] = channelCost(cfg, table, kind, m)
		amounts[TermCameras] = camerasCost(cfg, table, kind, m)
		amounts[TermStorage] = storageCost(cfg, table, kind, m)
		amounts[TermCable] = cableCost(cfg, table, kind, m)
		amounts[TermAccessories] = accessoriesCost(cfg, table, m)
		amounts[TermInstallation] = installationCost(cfg)
		q.Missing = m.items
	}

	q.Sum = decimal.Zero
	for _, name := range termOrder {
		amount := amounts[name]
		q.Terms = append(q.Terms, Term{Name: name, Amount: amount})
		q.Sum = q.Sum.Add(amount)
	}
	q.Total = q.Sum.Round(0).IntPart()

	if e.Mode == Strict && len(q.Missing) > 0 {
		return q, fmt.Errorf("%w: %s", ErrPricingDataMissing, strings.Join(q.Missing, ", "))
	}
	return q, nil
}

type missingSet struct {
	items []string
	seen  map[string]bool
}

func (m *missingSet) add(category string, label string) {
	key := category + ":" + label
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	m.items = append(m.items, key)
}

func cameraTypeCost(cfg Configuration, table *PriceTable, kind CameraKind, m *missingSet) decimal.Decimal {
	p, ok := table.CameraType(cfg.CameraType)
	if !ok {
		m.add(TermCameraType, cfg.CameraType)
		return decimal.Zero
	}
	price, ok := p.ForKind(kind)
	if !ok {
		m.add(TermCameraType, cfg.CameraType)
	}
	return price
}

func brandCost(cfg Configuration, table *PriceTable, kind CameraKind, m *missingSet) decimal.Decimal {
	if isNone(cfg.Brand) {
		return decimal.Zero
	}
	p, ok := table.Brand(cfg.Brand)
	if !ok {
		m.add(TermBrand, cfg.Brand)
		return decimal.Zero
	}
	price, ok := p.ForKind(kind)
	if !ok {
		m.add(TermBrand, cfg.Brand)
	}
	return price
}

func channelCost(cfg Configuration, table *PriceTable, kind CameraKind, m *missingSet) decimal.Decimal {
	if isNone(cfg.Channel) {
		return decimal.Zero
	}
	p, ok := table.Channel(cfg.Channel)
	if !ok {
		m.add(TermChannel, cfg.Channel)
		return decimal.Zero
	}
	price, ok := p.ForKind(kind)
	if !ok {
		m.add(TermChannel, cfg.Channel)
	}
	return price
}

func camerasCost(cfg Configuration, table *PriceTable, kind CameraKind, m *missingSet) decimal.Decimal {
	sum := decimal.Zero
	for _, cell := range cfg.Allocation.Cells() {
		base := decimal.Zero
		if p, ok := table.TechType(cell.TechType); ok {
			if price, ok := p.ForKind(kind); ok {
				base = price
			} else {
				m.add("tech_type", cell.TechType)
			}
		} else {
			m.add("tech_type", cell.TechType)
		}

		premium := decimal.Zero
		if p, ok := table.Pixel(cell.Pixel); ok {
			if price, ok := p.Unit(); ok {
				premium = price
			} else {
				m.add("pixel", cell.Pixel)
			}
		} else {
			m.add("pixel", cell.Pixel)
		}

		sum = sum.Add(base.Add(premium).Mul(decimal.NewFromInt(int64(cell.Qty))))
	}
	return sum
}

func storageCost(cfg Configuration, table *PriceTable, kind CameraKind, m *missingSet) decimal.Decimal {
	if isNone(cfg.Storage) {
		return decimal.Zero
	}
	p, ok := table.Storage(cfg.Storage)
	if !ok {
		m.add(TermStorage, cfg.Storage)
		return decimal.Zero
	}
	price, ok := p.ForKind(kind)
	if !ok {
		m.add(TermStorage, cfg.Storage)
	}
	return price
}

// CableQty is the billed roll count: the rolls only multiply for HD systems
// on options named as cable, every other option is billed once.
func CableQty(cfg Configuration, label string) int {
	if cfg.Kind() != KindHD || !strings.Contains(normalizeKey(label), "cable") {
		return 1
	}
	rolls := cfg.CableRolls
	switch {
	case rolls < MinCableRolls:
		rolls = MinCableRolls
	case rolls > MaxCableRolls:
		rolls = MaxCableRolls
	}
	return rolls
}

func cableCost(cfg Configuration, table *PriceTable, _ CameraKind, m *missingSet) decimal.Decimal {
	if isNone(cfg.Cable) {
		return decimal.Zero
	}
	p, ok := table.Cable(cfg.Cable)
	if !ok {
		m.add(TermCable, cfg.Cable)
		return decimal.Zero
	}
	price, ok := p.Unit()
	if !ok {
		m.add(TermCable, cfg.Cable)
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(CableQty(cfg, p.Label))))
}

func accessoriesCost(cfg Configuration, table *PriceTable, m *missingSet) decimal.Decimal {
	if !cfg.Accessories {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range table.Accessories() {
		price, ok := p.Unit()
		if !ok {
			m.add("accessory", p.Label)
			continue
		}
		sum = sum.Add(price)
	}
	return sum
}

// InstallationRateFor is the per-camera installation rate for a kit size.
func InstallationRateFor(totalCameras int) int64 {
	if totalCameras > InstallationBulkOver {
		return InstallationBulkRate
	}
	return InstallationRate
}

func installationCost(cfg Configuration) decimal.Decimal {
	if !cfg.Installation {
		return decimal.Zero
	}
	total := cfg.TotalCameras()
	return decimal.NewFromInt(int64(total) * InstallationRateFor(total))
}
