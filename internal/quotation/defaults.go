package quotation

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"cctvstore/backend/internal/domain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type yamlOption struct {
	Name         string  `yaml:"name"`
	Capacity     string  `yaml:"capacity"`
	ChannelCount string  `yaml:"channel_count"`
	Price        *string `yaml:"price"`
	HDPrice      *string `yaml:"hd_price"`
	IPPrice      *string `yaml:"ip_price"`
}

type yamlTable struct {
	CameraTypes []yamlOption `yaml:"camera_types"`
	Brands      []yamlOption `yaml:"brands"`
	Channels    []yamlOption `yaml:"channels"`
	Pixels      []yamlOption `yaml:"pixels"`
	TechTypes   []yamlOption `yaml:"tech_types"`
	Storage     []yamlOption `yaml:"storage"`
	Cables      []yamlOption `yaml:"cables"`
	Accessories []yamlOption `yaml:"accessories"`
}

// ParseYAMLDocument reads a price table written in YAML, the format of the
// built-in defaults.
func ParseYAMLDocument(raw []byte) (domain.PriceTableDocument, error) {
	var t yamlTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return domain.PriceTableDocument{}, fmt.Errorf("decode price table yaml: %w", err)
	}

	var firstErr error
	convert := func(in []yamlOption) []domain.PriceOption {
		out := make([]domain.PriceOption, 0, len(in))
		for _, o := range in {
			opt := domain.PriceOption{
				Name:         o.Name,
				Capacity:     o.Capacity,
				ChannelCount: domain.Label(strings.TrimSpace(o.ChannelCount)),
			}
			var err error
			if opt.Price, err = yamlDecimal(o.Price); err != nil && firstErr == nil {
				firstErr = err
			}
			if opt.HDPrice, err = yamlDecimal(o.HDPrice); err != nil && firstErr == nil {
				firstErr = err
			}
			if opt.IPPrice, err = yamlDecimal(o.IPPrice); err != nil && firstErr == nil {
				firstErr = err
			}
			out = append(out, opt)
		}
		return out
	}

	doc := domain.PriceTableDocument{
		CameraTypes: convert(t.CameraTypes),
		Brands:      convert(t.Brands),
		Channels:    convert(t.Channels),
		Pixels:      convert(t.Pixels),
		TechTypes:   convert(t.TechTypes),
		Storage:     convert(t.Storage),
		Cables:      convert(t.Cables),
		Accessories: convert(t.Accessories),
	}
	if firstErr != nil {
		return domain.PriceTableDocument{}, firstErr
	}
	return doc, nil
}

func yamlDecimal(raw *string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid price %q: %w", *raw, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// DefaultDocument is the built-in price table.
func DefaultDocument() domain.PriceTableDocument {
	doc, err := ParseYAMLDocument(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded price table: %v", err))
	}
	return doc
}

func DefaultTable() *PriceTable {
	return NewPriceTable(DefaultDocument())
}
