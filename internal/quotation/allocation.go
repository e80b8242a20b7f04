package quotation

import (
	"fmt"
	"sort"
)

// Allocation is the per-zone camera matrix: zone -> tech type -> pixel tier
// -> quantity. Values are treated as immutable; every mutation returns a copy.
type Allocation struct {
	zones map[Zone]map[string]map[string]int
}

// Cell is one non-zero entry of an Allocation.
type Cell struct {
	Zone     Zone
	TechType string
	Pixel    string
	Qty      int
}

func NewAllocation() Allocation {
	return Allocation{zones: map[Zone]map[string]map[string]int{}}
}

func (a Allocation) clone() Allocation {
	out := NewAllocation()
	for zone, techs := range a.zones {
		copied := make(map[string]map[string]int, len(techs))
		for tech, pixels := range techs {
			p := make(map[string]int, len(pixels))
			for pixel, qty := range pixels {
				p[pixel] = qty
			}
			copied[tech] = p
		}
		out.zones[zone] = copied
	}
	return out
}

func (a Allocation) Qty(zone Zone, techType string, pixel string) int {
	return a.zones[zone][techType][pixel]
}

func (a Allocation) ZoneTotal(zone Zone) int {
	total := 0
	for _, pixels := range a.zones[zone] {
		for _, qty := range pixels {
			total += qty
		}
	}
	return total
}

func (a Allocation) Total() int {
	total := 0
	for _, zone := range Zones {
		total += a.ZoneTotal(zone)
	}
	return total
}

// Cells lists every non-zero cell, zones in fixed order and tech types and
// pixel tiers sorted, so callers get a deterministic sequence.
func (a Allocation) Cells() []Cell {
	var cells []Cell
	for _, zone := range Zones {
		techs := a.zones[zone]
		techNames := make([]string, 0, len(techs))
		for tech := range techs {
			techNames = append(techNames, tech)
		}
		sort.Strings(techNames)
		for _, tech := range techNames {
			pixels := techs[tech]
			pixelNames := make([]string, 0, len(pixels))
			for pixel := range pixels {
				pixelNames = append(pixelNames, pixel)
			}
			sort.Strings(pixelNames)
			for _, pixel := range pixelNames {
				if qty := pixels[pixel]; qty > 0 {
					cells = append(cells, Cell{Zone: zone, TechType: tech, Pixel: pixel, Qty: qty})
				}
			}
		}
	}
	return cells
}

// TryIncrement adds delta cameras to one cell. Growth past capacity is
// rejected with ErrCapacityExceeded and the allocation is returned unchanged;
// shrinking never fails and stops at zero.
func (a Allocation) TryIncrement(zone Zone, techType string, pixel string, delta int, capacity int) (Allocation, error) {
	if zone != ZoneIndoor && zone != ZoneOutdoor {
		return a, ErrInvalidZone
	}
	if techType == "" || pixel == "" {
		return a, fmt.Errorf("%w: tech type and pixel tier are required", ErrInvalidQuantity)
	}
	if delta == 0 {
		return a, nil
	}

	current := a.Total()
	if delta > 0 && current+delta > capacity {
		return a, fmt.Errorf("%w: %d selected, %d requested, capacity %d", ErrCapacityExceeded, current, delta, capacity)
	}

	next := a.clone()
	techs := next.zones[zone]
	if techs == nil {
		techs = map[string]map[string]int{}
		next.zones[zone] = techs
	}
	pixels := techs[techType]
	if pixels == nil {
		pixels = map[string]int{}
		techs[techType] = pixels
	}
	qty := pixels[pixel] + delta
	if qty < 0 {
		qty = 0
	}
	pixels[pixel] = qty
	return next, nil
}

// SetZoneTotal replaces a whole zone with a single bucket of n cameras at the
// given tech type and pixel tier. Whatever split the zone had before is
// dropped.
func (a Allocation) SetZoneTotal(zone Zone, n int, capacity int, techType string, pixel string) (Allocation, error) {
	if zone != ZoneIndoor && zone != ZoneOutdoor {
		return a, ErrInvalidZone
	}
	if n < 0 {
		return a, fmt.Errorf("%w: zone total %d", ErrInvalidQuantity, n)
	}
	other := ZoneOutdoor
	if zone == ZoneOutdoor {
		other = ZoneIndoor
	}
	otherTotal := a.ZoneTotal(other)
	if n+otherTotal > capacity {
		return a, fmt.Errorf("%w: %d in %s plus %d in %s, capacity %d", ErrCapacityExceeded, n, zone, otherTotal, other, capacity)
	}

	next := a.clone()
	next.zones[zone] = map[string]map[string]int{
		techType: {pixel: n},
	}
	return next, nil
}
