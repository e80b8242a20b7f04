package quotation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cctvstore/backend/internal/domain"
)

func basicCombo(t *testing.T) Configuration {
	t.Helper()
	cfg := NewConfiguration().WithCameraType("HD").WithBrand("X")
	cfg = mustChannel(t, cfg, "4")
	return mustAdd(t, cfg, ZoneIndoor, "Standard", "2MP", 2)
}

func TestEvaluateBasicCombo(t *testing.T) {
	cfg := basicCombo(t)
	assert.Equal(t, int64(2400), Evaluate(cfg, testTable()))

	q, err := NewEvaluator(Strict).Quote(cfg, testTable())
	require.NoError(t, err)
	require.Len(t, q.Terms, 8)
	assert.Equal(t, TermCameraType, q.Terms[0].Name)
	assert.Equal(t, TermInstallation, q.Terms[7].Name)
	assert.True(t, q.Term(TermCameras).Equal(decimal.NewFromInt(700)))
	assert.Equal(t, 2, q.TotalCameras)
	assert.Empty(t, q.Missing)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	cfg := basicCombo(t)
	cfg = cfg.WithStorage("1TB").WithCable("3+1 Cable").WithCableRolls(2).WithAccessories(true).WithInstallation(true)
	table := testTable()

	first := Evaluate(cfg, table)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Evaluate(cfg, table))
	}
}

func TestEvaluateWithoutCameraTypeIsZero(t *testing.T) {
	cfg := NewConfiguration().WithBrand("X").WithStorage("1TB").WithAccessories(true).WithInstallation(true)
	cfg = mustChannel(t, cfg, "8")
	cfg = mustAdd(t, cfg, ZoneOutdoor, "Standard", "2MP", 3)

	assert.Equal(t, int64(0), Evaluate(cfg, testTable()))
	assert.Equal(t, int64(0), Evaluate(NewConfiguration(), DefaultTable()))
}

func TestCableMultiplierAppliesOnlyToHD(t *testing.T) {
	table := testTable()

	hd := NewConfiguration().WithCameraType("HD").WithCable("3+1 Cable").WithCableRolls(3)
	q, err := NewEvaluator(Strict).Quote(hd, table)
	require.NoError(t, err)
	assert.True(t, q.Term(TermCable).Equal(decimal.NewFromInt(5400)), "got %s", q.Term(TermCable))

	ip := NewConfiguration().WithCameraType("IP").WithCable("CAT6 Cable").WithCableRolls(3)
	q, err = NewEvaluator(Strict).Quote(ip, table)
	require.NoError(t, err)
	assert.True(t, q.Term(TermCable).Equal(decimal.NewFromInt(1800)), "got %s", q.Term(TermCable))
}

func TestCableNoneIsFree(t *testing.T) {
	cfg := NewConfiguration().WithCameraType("HD").WithCable("None").WithCableRolls(5)
	q, err := NewEvaluator(Strict).Quote(cfg, testTable())
	require.NoError(t, err)
	assert.True(t, q.Term(TermCable).IsZero())
}

func TestInstallationBreakpoint(t *testing.T) {
	cases := []struct {
		cameras int
		want    int64
	}{
		{cameras: 1, want: 400},
		{cameras: 8, want: 3200},
		{cameras: 9, want: 3150},
		{cameras: 16, want: 5600},
	}
	for _, tc := range cases {
		cfg := NewConfiguration().WithCameraType("HD").WithInstallation(true)
		cfg = mustChannel(t, cfg, "16")
		cfg = mustAdd(t, cfg, ZoneIndoor, "Standard", "2MP", tc.cameras)

		q, err := NewEvaluator(Lenient).Quote(cfg, testTable())
		require.NoError(t, err)
		assert.True(t, q.Term(TermInstallation).Equal(decimal.NewFromInt(tc.want)), "%d cameras: got %s", tc.cameras, q.Term(TermInstallation))
	}
}

func TestMissingBrandContributesZero(t *testing.T) {
	cfg := basicCombo(t).WithBrand("Unknown Brand")

	q, err := NewEvaluator(Lenient).Quote(cfg, testTable())
	require.NoError(t, err)
	assert.Equal(t, int64(2200), q.Total)
	assert.Equal(t, []string{"brand:Unknown Brand"}, q.Missing)

	_, err = NewEvaluator(Strict).Quote(cfg, testTable())
	require.ErrorIs(t, err, ErrPricingDataMissing)
	assert.Contains(t, err.Error(), "brand:Unknown Brand")
}

func TestStrictReportsMissingCameraCells(t *testing.T) {
	cfg := NewConfiguration().WithCameraType("IP")
	cfg = mustChannel(t, cfg, "8")
	cfg = mustAdd(t, cfg, ZoneOutdoor, "Thermal", "12MP", 1)

	q, err := NewEvaluator(Lenient).Quote(cfg, testTable())
	require.NoError(t, err)
	assert.Equal(t, int64(800+1800), q.Total)
	assert.ElementsMatch(t, []string{"tech_type:Thermal", "pixel:12MP"}, q.Missing)

	_, err = NewEvaluator(Strict).Quote(cfg, testTable())
	require.ErrorIs(t, err, ErrPricingDataMissing)
}

func TestBrandAndTechTypeFollowKind(t *testing.T) {
	cfg := NewConfiguration().WithCameraType("IP").WithBrand("X")
	cfg = mustChannel(t, cfg, "4")
	cfg = mustAdd(t, cfg, ZoneIndoor, "Standard", "2MP", 1)

	// 800 + 350 + 1000 + (450+50)
	assert.Equal(t, int64(2650), Evaluate(cfg, testTable()))
}

func TestCameraTypeLookupNormalizesAndFallsBackToKind(t *testing.T) {
	table := testTable()

	p, ok := table.CameraType("  hd ")
	require.True(t, ok)
	assert.Equal(t, "HD", p.Label)

	p, ok = table.CameraType("HD-TVI Analog")
	require.True(t, ok)
	assert.Equal(t, "HD", p.Label)

	p, ok = table.CameraType("Network")
	require.True(t, ok)
	assert.Equal(t, "IP", p.Label)
}

func TestStorageFallsBackToFlatPrice(t *testing.T) {
	hd := NewConfiguration().WithCameraType("HD").WithStorage("1TB")
	q, err := NewEvaluator(Strict).Quote(hd, testTable())
	require.NoError(t, err)
	assert.True(t, q.Term(TermStorage).Equal(decimal.NewFromInt(2500)))

	ip := NewConfiguration().WithCameraType("IP").WithStorage("1tb")
	q, err = NewEvaluator(Strict).Quote(ip, testTable())
	require.NoError(t, err)
	assert.True(t, q.Term(TermStorage).Equal(decimal.NewFromInt(2700)))

	flatOnly := NewConfiguration().WithCameraType("IP").WithStorage("2TB")
	q, err = NewEvaluator(Strict).Quote(flatOnly, testTable())
	require.NoError(t, err)
	assert.True(t, q.Term(TermStorage).Equal(decimal.NewFromInt(4000)))
}

func TestAccessoriesBundleSumsEverything(t *testing.T) {
	cfg := NewConfiguration().WithCameraType("HD").WithAccessories(true)
	q, err := NewEvaluator(Strict).Quote(cfg, testTable())
	require.NoError(t, err)
	assert.True(t, q.Term(TermAccessories).Equal(decimal.NewFromInt(470)))
	assert.Equal(t, int64(970), q.Total)
}

func TestRoundingHappensOnceAtTheEnd(t *testing.T) {
	doc := domain.PriceTableDocument{
		CameraTypes: []domain.PriceOption{{Name: "HD", Price: decimal.NewNullDecimal(decimal.RequireFromString("0.4"))}},
		Brands:      []domain.PriceOption{{Name: "X", HDPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.4"))}},
	}
	cfg := NewConfiguration().WithCameraType("HD").WithBrand("X")
	assert.Equal(t, int64(1), Evaluate(cfg, NewPriceTable(doc)))

	doc.Brands[0].HDPrice = decimal.NewNullDecimal(decimal.RequireFromString("0.1"))
	assert.Equal(t, int64(1), Evaluate(cfg, NewPriceTable(doc)), "0.5 rounds away from zero")
}

func TestDefaultTableQuotesAKit(t *testing.T) {
	table := DefaultTable()
	cfg := NewConfiguration().WithCameraType("HD").WithBrand("Hikvision").WithStorage("1TB").WithCable("3+1 Cable").WithCableRolls(2)
	cfg = mustChannel(t, cfg, "8")
	cfg = mustAdd(t, cfg, ZoneIndoor, "Standard", "2MP", 4)
	cfg = mustAdd(t, cfg, ZoneOutdoor, "Full Color", "4MP", 2)

	q, err := NewEvaluator(Strict).Quote(cfg, table)
	require.NoError(t, err)
	// 500 + 200 + 1800 + 4*(300+50) + 2*(450+250) + 2500 + 2*1800
	assert.Equal(t, int64(500+200+1800+1400+1400+2500+3600), q.Total)
	for _, missing := range q.Missing {
		assert.False(t, strings.HasPrefix(missing, "brand"))
	}
}

func TestDuplicateLabelsKeepFirstRow(t *testing.T) {
	doc := testDocument()
	doc.TechTypes = []domain.PriceOption{
		named("Standard", split(300, 450)),
		named(" standard ", split(999, 999)),
		named("Audio", split(380, 550)),
	}
	table := NewPriceTable(doc)

	assert.Equal(t, []string{"Standard", "Audio"}, table.TechTypes())
	techType, _ := table.DefaultBucket()
	assert.Equal(t, "Standard", techType)

	price, ok := table.TechType("STANDARD")
	require.True(t, ok)
	assert.Equal(t, techType, price.Label)
	hd, ok := price.ForKind(KindHD)
	require.True(t, ok)
	assert.True(t, hd.Equal(decimal.NewFromInt(300)))
}
