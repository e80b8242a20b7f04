package quotation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"cctvstore/backend/internal/domain"
)

const (
	MinCableRolls = 1
	MaxCableRolls = 5
)

// Configuration holds every selection of one kit. It is a value: setters
// return an updated copy and leave the receiver untouched.
type Configuration struct {
	CameraType   string
	Brand        string
	Channel      string
	DefaultPixel string
	Storage      string
	Cable        string
	CableRolls   int
	Accessories  bool
	Installation bool
	Allocation   Allocation
}

func NewConfiguration() Configuration {
	return Configuration{CableRolls: MinCableRolls, Allocation: NewAllocation()}
}

// Kind is the normalized system type of the selected camera type.
func (c Configuration) Kind() CameraKind {
	return KindOf(c.CameraType)
}

// Capacity is the number of camera inputs of the selected recorder. It is
// read from the leading digits of the channel label ("8", "8CH", "16 ch").
func (c Configuration) Capacity() int {
	return ChannelCapacity(c.Channel)
}

func ChannelCapacity(label string) int {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && unicode.IsDigit(rune(label[end])) {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0
	}
	return n
}

func (c Configuration) TotalCameras() int {
	return c.Allocation.Total()
}

func (c Configuration) WithCameraType(cameraType string) Configuration {
	c.CameraType = strings.TrimSpace(cameraType)
	return c
}

func (c Configuration) WithBrand(brand string) Configuration {
	c.Brand = strings.TrimSpace(brand)
	return c
}

// WithChannel switches the recorder. A recorder smaller than the cameras
// already placed is rejected.
func (c Configuration) WithChannel(channel string) (Configuration, error) {
	channel = strings.TrimSpace(channel)
	capacity := ChannelCapacity(channel)
	if total := c.Allocation.Total(); total > capacity {
		return c, fmt.Errorf("%w: %d cameras selected, channel %q holds %d", ErrCapacityExceeded, total, channel, capacity)
	}
	c.Channel = channel
	return c, nil
}

func (c Configuration) WithDefaultPixel(pixel string) Configuration {
	c.DefaultPixel = strings.TrimSpace(pixel)
	return c
}

func (c Configuration) WithStorage(storage string) Configuration {
	c.Storage = strings.TrimSpace(storage)
	return c
}

func (c Configuration) WithCable(cable string) Configuration {
	c.Cable = strings.TrimSpace(cable)
	return c
}

// WithCableRolls clamps the roll count into 1..5.
func (c Configuration) WithCableRolls(rolls int) Configuration {
	switch {
	case rolls < MinCableRolls:
		rolls = MinCableRolls
	case rolls > MaxCableRolls:
		rolls = MaxCableRolls
	}
	c.CableRolls = rolls
	return c
}

func (c Configuration) WithAccessories(on bool) Configuration {
	c.Accessories = on
	return c
}

func (c Configuration) WithInstallation(on bool) Configuration {
	c.Installation = on
	return c
}

// AddCameras changes one cell of the allocation through the capacity check.
func (c Configuration) AddCameras(zone Zone, techType string, pixel string, delta int) (Configuration, error) {
	next, err := c.Allocation.TryIncrement(zone, strings.TrimSpace(techType), strings.TrimSpace(pixel), delta, c.Capacity())
	if err != nil {
		return c, err
	}
	c.Allocation = next
	return c, nil
}

// SetZoneTotal collapses a zone into the table's default bucket. A configured
// default pixel tier replaces the table's first tier.
func (c Configuration) SetZoneTotal(zone Zone, n int, table *PriceTable) (Configuration, error) {
	techType, pixel := table.DefaultBucket()
	if c.DefaultPixel != "" {
		pixel = c.DefaultPixel
	}
	next, err := c.Allocation.SetZoneTotal(zone, n, c.Capacity(), techType, pixel)
	if err != nil {
		return c, err
	}
	c.Allocation = next
	return c, nil
}

// FromRequest replays a submitted kit through the setters, so a request
// carrying more cameras than its recorder holds is rejected the same way an
// interactive edit would be.
func FromRequest(req domain.QuotationRequest) (Configuration, error) {
	cfg := NewConfiguration().
		WithCameraType(req.CameraType).
		WithBrand(req.Brand).
		WithDefaultPixel(req.DefaultPixel).
		WithStorage(req.Storage).
		WithCable(req.Cable).
		WithAccessories(req.Accessories).
		WithInstallation(req.Installation)
	if req.CableRolls != 0 {
		cfg = cfg.WithCableRolls(req.CableRolls)
	}

	cfg, err := cfg.WithChannel(req.Channel)
	if err != nil {
		return Configuration{}, err
	}

	zones := []struct {
		zone    Zone
		cameras domain.ZoneCameras
	}{
		{ZoneIndoor, req.IndoorCameras},
		{ZoneOutdoor, req.OutdoorCameras},
	}
	for _, z := range zones {
		techs := make([]string, 0, len(z.cameras))
		for tech := range z.cameras {
			techs = append(techs, tech)
		}
		sort.Strings(techs)
		for _, tech := range techs {
			pixels := make([]string, 0, len(z.cameras[tech]))
			for pixel := range z.cameras[tech] {
				pixels = append(pixels, pixel)
			}
			sort.Strings(pixels)
			for _, pixel := range pixels {
				qty := z.cameras[tech][pixel]
				if qty < 0 {
					return Configuration{}, fmt.Errorf("%w: %s %s/%s has %d", ErrInvalidQuantity, z.zone, tech, pixel, qty)
				}
				cfg, err = cfg.AddCameras(z.zone, tech, pixel, qty)
				if err != nil {
					return Configuration{}, err
				}
			}
		}
	}
	return cfg, nil
}

// Request is the wire form of the configuration.
func (c Configuration) Request() domain.QuotationRequest {
	req := domain.QuotationRequest{
		CameraType:   c.CameraType,
		Brand:        c.Brand,
		Channel:      c.Channel,
		DefaultPixel: c.DefaultPixel,
		Storage:      c.Storage,
		Cable:        c.Cable,
		CableRolls:   c.CableRolls,
		Accessories:  c.Accessories,
		Installation: c.Installation,
	}
	for _, cell := range c.Allocation.Cells() {
		target := &req.IndoorCameras
		if cell.Zone == ZoneOutdoor {
			target = &req.OutdoorCameras
		}
		if *target == nil {
			*target = domain.ZoneCameras{}
		}
		if (*target)[cell.TechType] == nil {
			(*target)[cell.TechType] = map[string]int{}
		}
		(*target)[cell.TechType][cell.Pixel] = cell.Qty
	}
	return req
}
