package quotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cctvstore/backend/internal/domain"
)

func TestBrandPrefix(t *testing.T) {
	assert.Equal(t, "HIK", BrandPrefix("Hikvision"))
	assert.Equal(t, "EZV", BrandPrefix("e-Zviz"))
	assert.Equal(t, "X", BrandPrefix("X"))
	assert.Equal(t, "GEN", BrandPrefix(""))
	assert.Equal(t, "GEN", BrandPrefix("None"))
}

func TestGenerateBOMOrdering(t *testing.T) {
	cfg := NewConfiguration().WithCameraType("HD").WithBrand("Hikvision").
		WithStorage("1TB").WithCable("3+1 Cable").WithCableRolls(3).
		WithAccessories(true).WithInstallation(true)
	cfg = mustChannel(t, cfg, "8")
	cfg = mustAdd(t, cfg, ZoneOutdoor, "Standard", "2MP", 1)
	cfg = mustAdd(t, cfg, ZoneIndoor, "Standard", "5MP", 2)
	cfg = mustAdd(t, cfg, ZoneIndoor, "Audio", "2MP", 1)

	lines := GenerateBOM(cfg)
	models := make([]string, 0, len(lines))
	for _, l := range lines {
		models = append(models, l.Model)
	}
	assert.Equal(t, []string{
		"HIK-DVR-8CH",
		"HIK-C1-2MP",
		"HIK-C2-5MP",
		"HIK-C3-2MP",
		"HDD-1TB",
		"CBL-3+1CABLE",
		"ACC-BUNDLE",
		"SVC-INSTALL",
	}, models)

	assert.Equal(t, 1, lines[1].Qty)
	assert.Equal(t, "indoor Audio 2MP camera", lines[1].Description)
	assert.Equal(t, 2, lines[2].Qty)
	assert.Equal(t, 3, lines[5].Qty)
	assert.Equal(t, 4, lines[7].Qty)
	for _, l := range lines {
		assert.Zero(t, l.UnitPrice)
		assert.Zero(t, l.TotalPrice)
	}
}

func TestGenerateBOMMinimalIPKit(t *testing.T) {
	cfg := NewConfiguration().WithCameraType("IP").WithCable("CAT6 Cable").WithCableRolls(4)
	lines := GenerateBOM(cfg)
	require.Len(t, lines, 2)
	assert.Equal(t, "GEN-NVR-0CH", lines[0].Model)
	assert.Equal(t, 1, lines[1].Qty, "IP cable ignores rolls")
}

func TestGenerateBOMIsPure(t *testing.T) {
	cfg := basicCombo(t).WithInstallation(true)
	assert.Equal(t, GenerateBOM(cfg), GenerateBOM(cfg))
}

func TestAttachKitPriceOnlyTouchesRecorder(t *testing.T) {
	lines := GenerateBOM(basicCombo(t))
	priced := AttachKitPrice(lines, 2400)

	assert.Equal(t, int64(2400), priced[0].UnitPrice)
	assert.Equal(t, int64(2400), priced[0].TotalPrice)
	for _, l := range priced[1:] {
		assert.Zero(t, l.TotalPrice)
	}
	assert.Zero(t, lines[0].TotalPrice, "input must not be modified")
	assert.Empty(t, AttachKitPrice(nil, 10))
	assert.IsType(t, []domain.BOMLine{}, priced)
}
