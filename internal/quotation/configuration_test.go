package quotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cctvstore/backend/internal/domain"
)

func TestChannelCapacity(t *testing.T) {
	assert.Equal(t, 4, ChannelCapacity("4"))
	assert.Equal(t, 16, ChannelCapacity(" 16CH "))
	assert.Equal(t, 8, ChannelCapacity("8 channel"))
	assert.Equal(t, 0, ChannelCapacity(""))
	assert.Equal(t, 0, ChannelCapacity("None"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindHD, KindOf("HD"))
	assert.Equal(t, KindHD, KindOf("  turbo hd "))
	assert.Equal(t, KindIP, KindOf("IP"))
	assert.Equal(t, KindIP, KindOf("Network"))
	assert.Equal(t, KindNone, KindOf("   "))
}

func TestWithChannelRejectsSmallerRecorder(t *testing.T) {
	cfg := mustChannel(t, NewConfiguration().WithCameraType("HD"), "8")
	cfg = mustAdd(t, cfg, ZoneIndoor, "Standard", "2MP", 6)

	same, err := cfg.WithChannel("4")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, "8", same.Channel)

	bigger, err := cfg.WithChannel("16")
	require.NoError(t, err)
	assert.Equal(t, 16, bigger.Capacity())
}

func TestCableRollsAreClamped(t *testing.T) {
	assert.Equal(t, 1, NewConfiguration().WithCableRolls(0).CableRolls)
	assert.Equal(t, 5, NewConfiguration().WithCableRolls(12).CableRolls)
	assert.Equal(t, 3, NewConfiguration().WithCableRolls(3).CableRolls)
}

func TestConfigurationSetZoneTotalUsesTableDefaults(t *testing.T) {
	table := testTable()
	cfg := mustChannel(t, NewConfiguration().WithCameraType("HD"), "8")
	cfg = mustAdd(t, cfg, ZoneIndoor, "Audio", "5MP", 3)

	cfg, err := cfg.SetZoneTotal(ZoneIndoor, 5, table)
	require.NoError(t, err)
	assert.Equal(t, []Cell{{Zone: ZoneIndoor, TechType: "Standard", Pixel: "2MP", Qty: 5}}, cfg.Allocation.Cells())

	cfg = cfg.WithDefaultPixel("5MP")
	cfg, err = cfg.SetZoneTotal(ZoneOutdoor, 3, table)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Allocation.Qty(ZoneOutdoor, "Standard", "5MP"))

	_, err = cfg.SetZoneTotal(ZoneOutdoor, 4, table)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestFromRequestRoundTrip(t *testing.T) {
	req := domain.QuotationRequest{
		CameraType:   "HD",
		Brand:        "X",
		Channel:      "8",
		Storage:      "1TB",
		Cable:        "3+1 Cable",
		CableRolls:   2,
		Accessories:  true,
		Installation: true,
		IndoorCameras: domain.ZoneCameras{
			"Standard": {"2MP": 2, "5MP": 1},
		},
		OutdoorCameras: domain.ZoneCameras{
			"Audio": {"2MP": 3},
		},
	}

	cfg, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.TotalCameras())
	assert.Equal(t, req, cfg.Request())
}

func TestFromRequestEnforcesCapacity(t *testing.T) {
	req := domain.QuotationRequest{
		CameraType:    "HD",
		Channel:       "4",
		IndoorCameras: domain.ZoneCameras{"Standard": {"2MP": 3}},
		OutdoorCameras: domain.ZoneCameras{
			"Standard": {"2MP": 2},
		},
	}
	_, err := FromRequest(req)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	req.Channel = ""
	req.OutdoorCameras = nil
	_, err = FromRequest(req)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestFromRequestRejectsNegativeQuantity(t *testing.T) {
	req := domain.QuotationRequest{
		CameraType:    "IP",
		Channel:       "4",
		IndoorCameras: domain.ZoneCameras{"Standard": {"2MP": -1}},
	}
	_, err := FromRequest(req)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
