package quotation

import (
	"fmt"
	"strings"
	"unicode"

	"cctvstore/backend/internal/domain"
)

// BrandPrefix is the first three letters or digits of the brand, upper-cased.
// Kits without a brand use GEN.
func BrandPrefix(brand string) string {
	if isNone(brand) {
		return "GEN"
	}
	var b strings.Builder
	for _, r := range brand {
		if b.Len() == 3 {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "GEN"
	}
	return b.String()
}

func skuPart(label string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(label)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '+' || r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GenerateBOM lists the parts implied by a configuration. Only the recorder
// line ever carries a price, and only after AttachKitPrice.
func GenerateBOM(cfg Configuration) []domain.BOMLine {
	prefix := BrandPrefix(cfg.Brand)
	capacity := cfg.Capacity()

	recorder := "NVR"
	if cfg.Kind() == KindHD {
		recorder = "DVR"
	}
	lines := []domain.BOMLine{{
		Model:       fmt.Sprintf("%s-%s-%dCH", prefix, recorder, capacity),
		Qty:         1,
		Description: fmt.Sprintf("%d-channel %s recorder", capacity, recorder),
	}}

	for i, cell := range cfg.Allocation.Cells() {
		lines = append(lines, domain.BOMLine{
			Model:       fmt.Sprintf("%s-C%d-%s", prefix, i+1, skuPart(cell.Pixel)),
			Qty:         cell.Qty,
			Description: fmt.Sprintf("%s %s %s camera", cell.Zone, cell.TechType, cell.Pixel),
		})
	}

	if !isNone(cfg.Storage) {
		lines = append(lines, domain.BOMLine{
			Model:       "HDD-" + skuPart(cfg.Storage),
			Qty:         1,
			Description: cfg.Storage + " surveillance hard drive",
		})
	}
	if !isNone(cfg.Cable) {
		lines = append(lines, domain.BOMLine{
			Model:       "CBL-" + skuPart(cfg.Cable),
			Qty:         CableQty(cfg, cfg.Cable),
			Description: cfg.Cable,
		})
	}
	if cfg.Accessories {
		lines = append(lines, domain.BOMLine{
			Model:       "ACC-BUNDLE",
			Qty:         1,
			Description: "Accessory bundle",
		})
	}
	if cfg.Installation {
		lines = append(lines, domain.BOMLine{
			Model:       "SVC-INSTALL",
			Qty:         cfg.TotalCameras(),
			Description: "Installation service per camera",
		})
	}
	return lines
}

// AttachKitPrice puts the aggregate kit total on the recorder line. The
// slice is copied.
func AttachKitPrice(lines []domain.BOMLine, total int64) []domain.BOMLine {
	out := make([]domain.BOMLine, len(lines))
	copy(out, lines)
	if len(out) > 0 {
		out[0].UnitPrice = total
		out[0].TotalPrice = total
	}
	return out
}
