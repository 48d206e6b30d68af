// Package refdata holds the static campus reference tables: building
// coordinates and per-building access-point coordinates. Tables are loaded
// once at startup and are read-only afterwards, so concurrent queries need
// no locking.
package refdata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBuilding is returned when a building code is not present in
	// the reference tables.
	ErrUnknownBuilding = errors.New("unknown building")

	// ErrUnknownAccessPoint is returned when an access-point name is not
	// present in the reference tables.
	ErrUnknownAccessPoint = errors.New("unknown access point")
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat  float64 `yaml:"lat" json:"lat"`
	Long float64 `yaml:"long" json:"long"`
}

// Tables is the immutable set of campus reference data.
type Tables struct {
	buildings    map[string]Coordinates
	buildingList []string // stable iteration order for one-hot encoding
	accessPoints map[string]map[string]Coordinates
}

// NewTables builds reference tables from already-decoded maps. The building
// order list fixes the one-hot layout for the prediction feature vector and
// must match the order the model was trained with.
func NewTables(buildings map[string]Coordinates, order []string, accessPoints map[string]map[string]Coordinates) (*Tables, error) {
	if len(buildings) == 0 {
		return nil, fmt.Errorf("no buildings in reference data")
	}
	for _, code := range order {
		if _, ok := buildings[code]; !ok {
			return nil, fmt.Errorf("building order entry %q missing from building table", code)
		}
	}
	if len(order) != len(buildings) {
		return nil, fmt.Errorf("building order lists %d codes, table has %d", len(order), len(buildings))
	}
	return &Tables{
		buildings:    buildings,
		buildingList: order,
		accessPoints: accessPoints,
	}, nil
}

// Building returns the coordinates of a building code.
func (t *Tables) Building(code string) (Coordinates, error) {
	coords, ok := t.buildings[code]
	if !ok {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, code)
	}
	return coords, nil
}

// HasBuilding reports whether a building code is known.
func (t *Tables) HasBuilding(code string) bool {
	_, ok := t.buildings[code]
	return ok
}

// AccessPoint returns the coordinates of an access point within a building.
// Access points absent from the table report (0,0) with ErrUnknownAccessPoint;
// aggregation keeps such entries rather than failing the query.
func (t *Tables) AccessPoint(building, ap string) (Coordinates, error) {
	aps, ok := t.accessPoints[building]
	if !ok {
		return Coordinates{}, fmt.Errorf("%w: %s", ErrUnknownBuilding, building)
	}
	coords, ok := aps[ap]
	if !ok {
		return Coordinates{}, fmt.Errorf("%w: %s/%s", ErrUnknownAccessPoint, building, ap)
	}
	return coords, nil
}

// HasAccessPointBuilding reports whether a building has an access-point table.
func (t *Tables) HasAccessPointBuilding(building string) bool {
	_, ok := t.accessPoints[building]
	return ok
}

// BuildingOrder returns the fixed building ordering used for one-hot
// feature encoding. Callers must not modify the returned slice.
func (t *Tables) BuildingOrder() []string {
	return t.buildingList
}

// BuildingCount returns the number of known buildings.
func (t *Tables) BuildingCount() int {
	return len(t.buildings)
}
