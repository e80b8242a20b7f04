package quotation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cctvstore/backend/internal/domain"
)

func flat(v int64) domain.PriceOption {
	return domain.PriceOption{Price: decimal.NewNullDecimal(decimal.NewFromInt(v))}
}

func split(hd int64, ip int64) domain.PriceOption {
	return domain.PriceOption{
		HDPrice: decimal.NewNullDecimal(decimal.NewFromInt(hd)),
		IPPrice: decimal.NewNullDecimal(decimal.NewFromInt(ip)),
	}
}

func named(name string, opt domain.PriceOption) domain.PriceOption {
	opt.Name = name
	return opt
}

func testDocument() domain.PriceTableDocument {
	channel4 := flat(1000)
	channel4.ChannelCount = "4"
	channel8 := flat(1800)
	channel8.ChannelCount = "8"
	channel16 := flat(3200)
	channel16.ChannelCount = "16"
	storage := split(2500, 2700)
	storage.Capacity = "1TB"
	storage.Price = decimal.NewNullDecimal(decimal.NewFromInt(2500))
	flatStorage := flat(4000)
	flatStorage.Capacity = "2TB"

	return domain.PriceTableDocument{
		CameraTypes: []domain.PriceOption{named("HD", flat(500)), named("IP", flat(800))},
		Brands:      []domain.PriceOption{named("X", split(200, 350))},
		Channels:    []domain.PriceOption{channel4, channel8, channel16},
		Pixels:      []domain.PriceOption{named("2MP", flat(50)), named("5MP", flat(400))},
		TechTypes:   []domain.PriceOption{named("Standard", split(300, 450)), named("Audio", split(380, 550))},
		Storage:     []domain.PriceOption{storage, flatStorage},
		Cables:      []domain.PriceOption{named("3+1 Cable", flat(1800)), named("CAT6 Cable", flat(1800))},
		Accessories: []domain.PriceOption{named("BNC Connector", flat(20)), named("Power Supply", flat(450))},
	}
}

func testTable() *PriceTable {
	return NewPriceTable(testDocument())
}

func mustChannel(t *testing.T, cfg Configuration, channel string) Configuration {
	t.Helper()
	next, err := cfg.WithChannel(channel)
	require.NoError(t, err)
	return next
}

func mustAdd(t *testing.T, cfg Configuration, zone Zone, tech string, pixel string, delta int) Configuration {
	t.Helper()
	next, err := cfg.AddCameras(zone, tech, pixel, delta)
	require.NoError(t, err)
	return next
}
