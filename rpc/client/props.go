package client

import (
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"maps"
	"slices"
	"strconv"
)

// The daemon transmits every property as text. Booleans are the literals
// "true"/"false", integers are decimal. Conversion happens only here.

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func parseBool(property, value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, common.NewError(common.InvalidValue, fmt.Sprintf("property %s: %q is not a boolean", property, value))
	}
}

func parseInt(property, value string) (int64, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, common.WrapError(common.InvalidValue, err, "property %s: %q is not an integer", property, value)
	}
	return v, nil
}

func parseUint(property, value string) (uint64, error) {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, common.WrapError(common.InvalidValue, err, "property %s: %q is not an unsigned integer", property, value)
	}
	return v, nil
}

// sortedKeys returns the keys of props in ascending order
func sortedKeys(props map[string]string) []string {
	return slices.Sorted(maps.Keys(props))
}

// volumeProperties converts a property map into the wire list, ordered by name
func volumeProperties(props map[string]string) []*common.VolumeProperty {
	list := make([]*common.VolumeProperty, 0, len(props))
	for _, name := range sortedKeys(props) {
		list = append(list, &common.VolumeProperty{Name: name, Value: props[name]})
	}
	return list
}
