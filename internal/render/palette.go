package render

import (
	"parking-locator/internal/model"
	"parking-locator/internal/status"
)

// Color is one swatch of a palette.
type Color struct {
	Name string
	Hex  string
	ANSI string
}

// Palette is the set of colours a theme renders with.
type Palette struct {
	Occupied Color
	Free     Color
	Unknown  Color
	Accent   Color
}

var (
	errorColor   = Color{Name: "red", Hex: "#e53935", ANSI: "\x1b[31m"}
	successColor = Color{Name: "green", Hex: "#43a047", ANSI: "\x1b[32m"}
	unknownColor = Color{Name: "gray", Hex: "#808080", ANSI: "\x1b[90m"}
)

// LightPalette is the default theme.
var LightPalette = Palette{
	Occupied: errorColor,
	Free:     successColor,
	Unknown:  unknownColor,
	Accent:   Color{Name: "navy", Hex: "#303c64", ANSI: "\x1b[34m"},
}

// DarkPalette is used when the dark theme is on.
var DarkPalette = Palette{
	Occupied: errorColor,
	Free:     successColor,
	Unknown:  unknownColor,
	Accent:   Color{Name: "white", Hex: "#ffffff", ANSI: "\x1b[97m"},
}

const ansiReset = "\x1b[0m"

// PaletteFor returns the palette of the selected theme.
func PaletteFor(dark bool) Palette {
	if dark {
		return DarkPalette
	}
	return LightPalette
}

// ForOccupancy returns the colour a spot in state o is drawn with.
func (p Palette) ForOccupancy(o model.Occupancy) Color {
	switch o {
	case model.OccupancyOccupied:
		return p.Occupied
	case model.OccupancyFree:
		return p.Free
	default:
		return p.Unknown
	}
}

// ForStatus returns the banner colour of kind.
func (p Palette) ForStatus(k status.Kind) Color {
	if k == status.KindFailure {
		return errorColor
	}
	return successColor
}
