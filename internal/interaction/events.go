package interaction

import "kgview/internal/domain"

// EventKind identifies a raw input event
type EventKind int

const (
	PointerDown EventKind = iota + 1
	PointerMove
	PointerUp
	Wheel
	Key
)

var kindNames = map[EventKind]string{
	PointerDown: "pointer_down",
	PointerMove: "pointer_move",
	PointerUp:   "pointer_up",
	Wheel:       "wheel",
	Key:         "key",
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a wire name such as "pointer_down" to its kind
func ParseKind(s string) (EventKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Event is a raw input event in surface coordinates
type Event struct {
	Kind    EventKind
	Pos     domain.Vec
	Primary bool    // primary button, pointer events only
	Delta   float64 // wheel delta, negative zooms in
	Key     string  // key name, Key events only
}

// Key names the controller reacts to
const (
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
	KeySpace     = " "
	KeyLabels    = "l"
	KeyResetView = "0"
	KeyPin       = "p"
)
