package geometry

// Marker bits: 1 is highlight, 2 is select.
const (
	MarkerHighlight uint8 = 1
	MarkerSelect    uint8 = 2
)

type MarkerAction int

const (
	MarkerActionHighlight MarkerAction = iota
	MarkerActionRemoveHighlight
	MarkerActionSelect
	MarkerActionDeselect
	MarkerActionToggle
	MarkerActionClear
)

func (a MarkerAction) String() string {
	switch a {
	case MarkerActionHighlight:
		return "highlight"
	case MarkerActionRemoveHighlight:
		return "removeHighlight"
	case MarkerActionSelect:
		return "select"
	case MarkerActionDeselect:
		return "deselect"
	case MarkerActionToggle:
		return "toggle"
	case MarkerActionClear:
		return "clear"
	}
	return "unknown"
}

// Apply returns the marker value after applying a.
func (a MarkerAction) Apply(v uint8) uint8 {
	switch a {
	case MarkerActionHighlight:
		return v | MarkerHighlight
	case MarkerActionRemoveHighlight:
		return v &^ MarkerHighlight
	case MarkerActionSelect:
		return v | MarkerSelect
	case MarkerActionDeselect:
		return v &^ MarkerSelect
	case MarkerActionToggle:
		return v ^ MarkerSelect
	case MarkerActionClear:
		return 0
	}
	return v
}

// ApplyMarkerRange applies a to markers[start:end] and reports whether any
// value changed.
func ApplyMarkerRange(markers []uint8, start, end int, a MarkerAction) bool {
	start, end = max(start, 0), min(end, len(markers))
	changed := false
	for i := start; i < end; i++ {
		if n := a.Apply(markers[i]); n != markers[i] {
			markers[i] = n
			changed = true
		}
	}
	return changed
}

// ApplyMarkerIndices applies a to the given indices.
func ApplyMarkerIndices(markers []uint8, indices []int, a MarkerAction) bool {
	changed := false
	for _, i := range indices {
		if i < 0 || i >= len(markers) {
			continue
		}
		if n := a.Apply(markers[i]); n != markers[i] {
			markers[i] = n
			changed = true
		}
	}
	return changed
}

// MarkerAverage is the fraction of marked entries.
func MarkerAverage(markers []uint8) float32 {
	if len(markers) == 0 {
		return 0
	}
	n := 0
	for _, m := range markers {
		if m != 0 {
			n++
		}
	}
	return float32(n) / float32(len(markers))
}
