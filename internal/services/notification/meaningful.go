package notification

import (
	"fmt"
	"reflect"
)

// Volume and chip fields inspected by the report classifiers
var (
	volumeFields = []string{"volume_ratio", "turnover_rate"}
	chipFields   = []string{"profit_ratio", "avg_cost", "concentration"}
)

// IsMeaningful reports whether v carries real data. nil (typed or untyped)
// is not meaningful, nor is any value whose text form is "N/A", "None" or "".
// Zero numbers are meaningful.
func IsMeaningful(v interface{}) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return false
		}
	}

	switch fmt.Sprint(rv.Interface()) {
	case "N/A", "None", "":
		return false
	}
	return true
}

// HasMeaningfulVolume reports whether a volume_analysis block has any
// meaningful volume_ratio or turnover_rate.
func HasMeaningfulVolume(block map[string]interface{}) bool {
	return anyMeaningful(block, volumeFields)
}

// HasMeaningfulChip reports whether a chip_structure block has any
// meaningful profit_ratio, avg_cost or concentration.
func HasMeaningfulChip(block map[string]interface{}) bool {
	return anyMeaningful(block, chipFields)
}

func anyMeaningful(block map[string]interface{}, fields []string) bool {
	for _, field := range fields {
		if IsMeaningful(block[field]) {
			return true
		}
	}
	return false
}
