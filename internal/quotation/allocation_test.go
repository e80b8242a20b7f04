package quotation

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryIncrementRejectsGrowthPastCapacity(t *testing.T) {
	a := NewAllocation()
	a, err := a.TryIncrement(ZoneIndoor, "Standard", "2MP", 3, 4)
	require.NoError(t, err)

	next, err := a.TryIncrement(ZoneOutdoor, "Standard", "2MP", 2, 4)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 3, next.Total())
	assert.Equal(t, 0, next.ZoneTotal(ZoneOutdoor))

	next, err = a.TryIncrement(ZoneOutdoor, "Standard", "2MP", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, next.Total())
	assert.Equal(t, 3, a.Total(), "receiver must not change")
}

func TestTryIncrementWithoutChannelRejectsEverything(t *testing.T) {
	_, err := NewAllocation().TryIncrement(ZoneIndoor, "Standard", "2MP", 1, 0)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestDecrementClampsAtZero(t *testing.T) {
	a, err := NewAllocation().TryIncrement(ZoneIndoor, "Audio", "5MP", 2, 8)
	require.NoError(t, err)

	a, err = a.TryIncrement(ZoneIndoor, "Audio", "5MP", -5, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Qty(ZoneIndoor, "Audio", "5MP"))
	assert.Empty(t, a.Cells())
}

func TestDecrementNeverRejectedOverCapacity(t *testing.T) {
	a, err := NewAllocation().TryIncrement(ZoneIndoor, "Standard", "2MP", 8, 8)
	require.NoError(t, err)

	// a smaller capacity must still allow shrinking
	a, err = a.TryIncrement(ZoneIndoor, "Standard", "2MP", -1, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, a.Total())
}

func TestTryIncrementValidatesZone(t *testing.T) {
	_, err := NewAllocation().TryIncrement(Zone("attic"), "Standard", "2MP", 1, 8)
	require.ErrorIs(t, err, ErrInvalidZone)
}

func TestSetZoneTotalCollapsesZone(t *testing.T) {
	a := NewAllocation()
	var err error
	a, err = a.TryIncrement(ZoneIndoor, "Audio", "5MP", 2, 16)
	require.NoError(t, err)
	a, err = a.TryIncrement(ZoneIndoor, "Standard", "5MP", 1, 16)
	require.NoError(t, err)
	a, err = a.TryIncrement(ZoneOutdoor, "Audio", "5MP", 4, 16)
	require.NoError(t, err)

	a, err = a.SetZoneTotal(ZoneIndoor, 6, 16, "Standard", "2MP")
	require.NoError(t, err)

	cells := a.Cells()
	var indoor []Cell
	for _, c := range cells {
		if c.Zone == ZoneIndoor {
			indoor = append(indoor, c)
		}
	}
	require.Len(t, indoor, 1)
	assert.Equal(t, Cell{Zone: ZoneIndoor, TechType: "Standard", Pixel: "2MP", Qty: 6}, indoor[0])
	assert.Equal(t, 4, a.ZoneTotal(ZoneOutdoor))
}

func TestSetZoneTotalChecksOtherZone(t *testing.T) {
	a, err := NewAllocation().TryIncrement(ZoneOutdoor, "Standard", "2MP", 3, 4)
	require.NoError(t, err)

	_, err = a.SetZoneTotal(ZoneIndoor, 2, 4, "Standard", "2MP")
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = a.SetZoneTotal(ZoneIndoor, -1, 4, "Standard", "2MP")
	require.ErrorIs(t, err, ErrInvalidQuantity)

	a, err = a.SetZoneTotal(ZoneIndoor, 1, 4, "Standard", "2MP")
	require.NoError(t, err)
	assert.Equal(t, 4, a.Total())
}

func TestAllocationInvariantsUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	techs := []string{"Standard", "Audio"}
	pixels := []string{"2MP", "5MP"}
	const capacity = 8

	a := NewAllocation()
	for i := 0; i < 2000; i++ {
		zone := Zones[rng.Intn(len(Zones))]
		before := a.Total()
		var err error
		var next Allocation
		if rng.Intn(5) == 0 {
			next, err = a.SetZoneTotal(zone, rng.Intn(capacity+3)-1, capacity, techs[0], pixels[0])
		} else {
			next, err = a.TryIncrement(zone, techs[rng.Intn(2)], pixels[rng.Intn(2)], rng.Intn(7)-3, capacity)
		}
		if err != nil {
			require.True(t, errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrInvalidQuantity), "unexpected error %v", err)
			require.Equal(t, before, next.Total())
		}
		a = next

		require.LessOrEqual(t, a.Total(), capacity)
		for _, z := range Zones {
			for _, tech := range techs {
				for _, pixel := range pixels {
					require.GreaterOrEqual(t, a.Qty(z, tech, pixel), 0)
				}
			}
		}
	}
}
