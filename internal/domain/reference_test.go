package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoofTypes(t *testing.T) {
	types := RoofTypes()
	require.Len(t, types, 10)

	seen := map[string]bool{}
	for _, rt := range types {
		assert.False(t, seen[rt.Name], "duplicate roof type %q", rt.Name)
		seen[rt.Name] = true
		assert.GreaterOrEqual(t, rt.BaseCoefficient, 0.70, rt.Name)
		assert.LessOrEqual(t, rt.BaseCoefficient, 0.90, rt.Name)
	}
}

func TestRoofTypes_ReturnsCopy(t *testing.T) {
	types := RoofTypes()
	types[0].BaseCoefficient = 0

	again := RoofTypes()
	assert.Equal(t, 0.90, again[0].BaseCoefficient)
}

func TestLocations(t *testing.T) {
	locs := Locations()
	require.Len(t, locs, 24)

	counts := map[Region]int{}
	for _, l := range locs {
		assert.True(t, l.Region.Valid(), l.Name)
		assert.Positive(t, l.RainfallMM, l.Name)
		assert.NotEmpty(t, l.State, l.Name)
		counts[l.Region]++

		got, ok := LookupLocation(l.Name)
		require.True(t, ok, l.Name)
		assert.Equal(t, l, got)
	}
	assert.Equal(t, 12, counts[RegionUrban])
	assert.Equal(t, 12, counts[RegionRural])
}

func TestLookup_Unknown(t *testing.T) {
	_, ok := LookupLocation("Atlantis")
	assert.False(t, ok)
	_, ok = LookupRoofType("Thatch")
	assert.False(t, ok)
}

func TestRegionModifier(t *testing.T) {
	assert.Equal(t, -0.03, RegionUrban.Modifier())
	assert.Equal(t, -0.05, RegionRural.Modifier())
	assert.Equal(t, []Region{RegionUrban, RegionRural}, Regions())
	assert.False(t, Region("urban").Valid())
}
