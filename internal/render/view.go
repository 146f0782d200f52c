// Package render turns screen state into terminal output. Two presentations
// exist, "classic" and "compact", both drawing the same controller state.
package render

import (
	"fmt"
	"time"

	"parking-locator/internal/i18n"
	"parking-locator/internal/mapscreen"
	"parking-locator/internal/model"
	"parking-locator/internal/parse"
)

const (
	bayRadius     = 1.1
	defaultRadius = 0.75

	markerTimeLayout = "15:04:05"
	sinceLayout      = "15:04:05 02.01.2006"
)

// Marker is one spot as drawn on the map.
type Marker struct {
	SpotID      int64
	Title       string
	Latitude    float64
	Longitude   float64
	Occupancy   model.Occupancy
	Color       Color
	Radius      float64
	Description string
	Closest     bool
}

// view holds what both renderers need to format text.
type view struct {
	catalog *i18n.Catalog
	tz      *time.Location
}

// Markers builds one marker per spot in st.
func Markers(st mapscreen.State, catalog *i18n.Catalog, tz *time.Location) []Marker {
	v := view{catalog: catalog, tz: tz}
	return v.markers(st)
}

func (v view) markers(st mapscreen.State) []Marker {
	palette := PaletteFor(st.ThemeDark)
	markers := make([]Marker, 0, len(st.Spots))
	for _, spot := range st.Spots {
		radius := defaultRadius
		if parse.IsBay(spot.Name) {
			radius = bayRadius
		}
		occupancy := spot.Occupancy()
		markers = append(markers, Marker{
			SpotID:      spot.ID,
			Title:       spot.Name,
			Latitude:    spot.Latitude,
			Longitude:   spot.Longitude,
			Occupancy:   occupancy,
			Color:       palette.ForOccupancy(occupancy),
			Radius:      radius,
			Description: v.markerDescription(spot.UpdatedAt),
			Closest:     st.Closest != nil && st.Closest.ID == spot.ID,
		})
	}
	return markers
}

func (v view) markerDescription(updatedAt time.Time) string {
	if updatedAt.IsZero() {
		return fmt.Sprintf("%s %s", v.catalog.T("parkingMap.updatedAt"), v.catalog.T("base.unknown"))
	}
	return fmt.Sprintf("%s %s", v.catalog.T("parkingMap.updatedAt"), updatedAt.In(v.tz).Format(markerTimeLayout))
}

func (v view) stateLabel(o model.Occupancy) string {
	switch o {
	case model.OccupancyOccupied:
		return v.catalog.T("parkingMap.parkingSpotDetail.header.stateOccupied")
	case model.OccupancyFree:
		return v.catalog.T("parkingMap.parkingSpotDetail.header.stateFree")
	default:
		return v.catalog.T("parkingMap.parkingSpotDetail.header.stateUnknown")
	}
}

// sheetTitle is "<name> - <state>".
func (v view) sheetTitle(sheet mapscreen.SheetContent) string {
	return fmt.Sprintf("%s - %s", sheet.SpotName, v.stateLabel(sheet.Occupancy()))
}

// sheetText describes since when the spot has been in its state.
func (v view) sheetText(sheet mapscreen.SheetContent) string {
	var label string
	switch sheet.Occupancy() {
	case model.OccupancyOccupied:
		label = v.catalog.T("parkingMap.parkingSheet.occupiedSince")
	case model.OccupancyFree:
		label = v.catalog.T("parkingMap.parkingSheet.freeSince")
	default:
		return v.catalog.T("parkingMap.parkingSheet.stateUnknown")
	}

	since := v.catalog.T("parkingMap.parkingSheet.noData")
	if sheet.Detail.StateSince.Valid {
		since = sheet.Detail.StateSince.Time.In(v.tz).Format(sinceLayout)
	}
	return fmt.Sprintf("%s: %s", label, since)
}

func (v view) historyTime(t time.Time) string {
	return t.In(v.tz).Format(sinceLayout)
}

func onOff(b bool) string {
	if b {
		return "[x]"
	}
	return "[ ]"
}
