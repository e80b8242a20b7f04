// Package quotation prices custom CCTV kits. It holds the price tables, the
// kit configuration with its camera-capacity rules, the price evaluator and
// the bill-of-materials generator.
package quotation

import (
	"errors"
	"strings"
)

var (
	ErrCapacityExceeded   = errors.New("camera quantity exceeds channel capacity")
	ErrInvalidZone        = errors.New("invalid camera zone")
	ErrInvalidQuantity    = errors.New("invalid camera quantity")
	ErrPricingDataMissing = errors.New("pricing data missing")
)

// CameraKind is the system type a kit is built on. The price of brands, tech
// types and storage depends on it.
type CameraKind int

const (
	KindNone CameraKind = iota
	KindHD
	KindIP
)

func (k CameraKind) String() string {
	switch k {
	case KindHD:
		return "HD"
	case KindIP:
		return "IP"
	default:
		return ""
	}
}

// KindOf classifies a camera-type label. Anything mentioning "hd" is HD and
// every other non-empty label is IP.
func KindOf(cameraType string) CameraKind {
	key := normalizeKey(cameraType)
	switch {
	case key == "":
		return KindNone
	case strings.Contains(key, "hd"):
		return KindHD
	default:
		return KindIP
	}
}

// Zone is a camera placement category.
type Zone string

const (
	ZoneIndoor  Zone = "indoor"
	ZoneOutdoor Zone = "outdoor"
)

var Zones = []Zone{ZoneIndoor, ZoneOutdoor}

func ParseZone(raw string) (Zone, error) {
	switch Zone(normalizeKey(raw)) {
	case ZoneIndoor:
		return ZoneIndoor, nil
	case ZoneOutdoor:
		return ZoneOutdoor, nil
	default:
		return "", ErrInvalidZone
	}
}

// normalizeKey lower-cases a label and collapses its whitespace so that
// "  3+1  Cable" and "3+1 cable" address the same price row.
func normalizeKey(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

func isNone(raw string) bool {
	key := normalizeKey(raw)
	return key == "" || key == "none"
}
