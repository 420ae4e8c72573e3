package geometry

import "fmt"

// Mode selects how x coordinates are derived.
type Mode int

const (
	// ModeIcicle places rows by value offset within the selection.
	ModeIcicle Mode = iota
	// ModeFlameChart places rows by timestamp within the selection.
	ModeFlameChart
)

func (m Mode) String() string {
	switch m {
	case ModeIcicle:
		return "icicle"
	case ModeFlameChart:
		return "flamechart"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "icicle", "flamegraph", "":
		return ModeIcicle, nil
	case "flamechart", "flame-chart":
		return ModeFlameChart, nil
	default:
		return ModeIcicle, fmt.Errorf("unknown render mode %q", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
