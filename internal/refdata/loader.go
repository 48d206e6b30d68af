package refdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// buildingsFile is the YAML document shape for the building table.
//
//	buildings:
//	  KNWL: {lat: 42.3941, long: -72.5281}
//	order: [KNWL, DUBOIS, ...]
type buildingsFile struct {
	Buildings map[string]Coordinates `yaml:"buildings"`
	Order     []string               `yaml:"order"`
}

// accessPointsFile is the YAML document shape for the access-point table.
//
//	access_points:
//	  KNWL:
//	    KNWL-2A: {lat: 42.3941, long: -72.5281}
type accessPointsFile struct {
	AccessPoints map[string]map[string]Coordinates `yaml:"access_points"`
}

// Load reads the building and access-point reference tables from YAML files
// and returns an immutable Tables. When the file omits an explicit building
// order, the order list is required to be present anyway: the one-hot layout
// of the prediction feature vector depends on it.
func Load(buildingsPath, accessPointsPath string) (*Tables, error) {
	raw, err := os.ReadFile(buildingsPath)
	if err != nil {
		return nil, fmt.Errorf("read building table: %w", err)
	}

	var bf buildingsFile
	if err := yaml.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("parse building table %s: %w", buildingsPath, err)
	}
	if len(bf.Order) == 0 {
		return nil, fmt.Errorf("building table %s: missing order list", buildingsPath)
	}

	raw, err = os.ReadFile(accessPointsPath)
	if err != nil {
		return nil, fmt.Errorf("read access-point table: %w", err)
	}

	var af accessPointsFile
	if err := yaml.Unmarshal(raw, &af); err != nil {
		return nil, fmt.Errorf("parse access-point table %s: %w", accessPointsPath, err)
	}

	return NewTables(bf.Buildings, bf.Order, af.AccessPoints)
}
