package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cctvstore/backend/internal/domain"
	"cctvstore/backend/internal/quotation"
)

func writeKit(t *testing.T, req domain.QuotationRequest) string {
	t.Helper()
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "kit.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func starterKit() domain.QuotationRequest {
	return domain.QuotationRequest{
		CameraType:    "HD",
		Brand:         "Hikvision",
		Channel:       "4",
		Installation:  true,
		IndoorCameras: domain.ZoneCameras{"Standard": {"2MP": 2}},
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEvaluateJSON(t *testing.T) {
	kit := writeKit(t, starterKit())

	out, err := run(t, "evaluate", "--config", kit, "--format", "json")
	require.NoError(t, err)

	var got quoteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, int64(3200), got.Total)
	assert.Equal(t, 2, got.TotalCameras)
	assert.Len(t, got.Terms, 8)
	assert.Empty(t, got.Missing)
}

func TestEvaluateTextListsTotal(t *testing.T) {
	kit := writeKit(t, starterKit())

	out, err := run(t, "evaluate", "--config", kit)
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "3200")
	assert.Contains(t, out, "cameras: 2")
}

func TestEvaluateStrictRejectsUnpricedBrand(t *testing.T) {
	req := starterKit()
	req.Brand = "Acme"
	kit := writeKit(t, req)

	out, err := run(t, "evaluate", "--config", kit, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "brand:Acme")

	_, err = run(t, "evaluate", "--config", kit, "--strict")
	require.Error(t, err)
	assert.ErrorIs(t, err, quotation.ErrPricingDataMissing)
}

func TestEvaluateRejectsOverCapacityKit(t *testing.T) {
	req := starterKit()
	req.IndoorCameras = domain.ZoneCameras{"Standard": {"2MP": 5}}
	kit := writeKit(t, req)

	_, err := run(t, "evaluate", "--config", kit)
	assert.ErrorIs(t, err, quotation.ErrCapacityExceeded)
}

func TestDefaultsRoundTripThroughTableFile(t *testing.T) {
	out, err := run(t, "defaults")
	require.NoError(t, err)

	tablePath := filepath.Join(t.TempDir(), "prices.json")
	require.NoError(t, os.WriteFile(tablePath, []byte(out), 0o600))

	kit := writeKit(t, starterKit())
	evaluated, err := run(t, "--table", tablePath, "evaluate", "--config", kit, "--format", "json")
	require.NoError(t, err)

	var got quoteOutput
	require.NoError(t, json.Unmarshal([]byte(evaluated), &got))
	assert.Equal(t, int64(3200), got.Total)
}

func TestBOMCarriesKitPriceOnRecorder(t *testing.T) {
	kit := writeKit(t, starterKit())

	out, err := run(t, "bom", "--config", kit, "--format", "json")
	require.NoError(t, err)

	var lines []domain.BOMLine
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.NotEmpty(t, lines)
	assert.Equal(t, "HIK-DVR-4CH", lines[0].Model)
	assert.Equal(t, int64(3200), lines[0].TotalPrice)
	assert.Equal(t, "SVC-INSTALL", lines[len(lines)-1].Model)
}

func TestTableFlagsAreExclusive(t *testing.T) {
	kit := writeKit(t, starterKit())

	_, err := run(t, "--table", "a.json", "--table-url", "http://127.0.0.1:1/table", "evaluate", "--config", kit)
	assert.Error(t, err)
}

func TestConfigFlagRequired(t *testing.T) {
	_, err := run(t, "evaluate")
	assert.Error(t, err)
}
