package session

import (
	"fmt"
	"strings"
)

// FloorLevel extracts the floor-level integer from an access-point name.
// Names follow the convention <BUILDING>-<FLOOR_TOKEN>, where the floor is
// the first decimal digit of the token after the building code: KNWL-2A is
// floor 2. Names without a digit after the separator are a data-quality
// error, not a crash.
func FloorLevel(apName string) (int, error) {
	sep := strings.IndexByte(apName, '-')
	if sep < 0 || sep+1 >= len(apName) {
		return 0, fmt.Errorf("%w: %q", ErrUnresolvableFloor, apName)
	}

	for i := sep + 1; i < len(apName); i++ {
		if c := apName[i]; c >= '0' && c <= '9' {
			return int(c - '0'), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnresolvableFloor, apName)
}
