package render

import (
	"fmt"
	"io"
	"strings"

	"parking-locator/internal/mapscreen"
	"parking-locator/internal/model"
	"parking-locator/internal/subscriptions"
)

// Compact renders one line per spot with a state glyph. Bays get a larger
// glyph the same way the map draws them with a larger circle.
type Compact struct {
	printer
}

// Name implements Renderer.
func (c *Compact) Name() string { return "compact" }

func glyph(o model.Occupancy, radius float64) string {
	var g string
	switch o {
	case model.OccupancyOccupied:
		g = "x"
	case model.OccupancyFree:
		g = "o"
	default:
		g = "?"
	}
	if radius > defaultRadius {
		g = strings.ToUpper(g)
	}
	return g
}

// Map implements Renderer.
func (c *Compact) Map(w io.Writer, st mapscreen.State) error {
	palette := PaletteFor(st.ThemeDark)

	header := fmt.Sprintf("%s %s", c.catalog.T("parkingMap.updatedAt"), st.UpdatedAt)
	if st.Busy {
		header += " · " + c.catalog.T("base.wait")
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, m := range c.markers(st) {
		marker := " "
		if m.Closest {
			marker = ">"
		}
		_, err := fmt.Fprintf(w, "%s%s %-12s %s\n", marker, c.paint(m.Color, glyph(m.Occupancy, m.Radius)), m.Title, m.Description)
		if err != nil {
			return err
		}
	}

	if st.SheetOpen && st.Sheet != nil {
		sheet := *st.Sheet
		line := fmt.Sprintf("[%s] %s", c.sheetTitle(sheet), c.sheetText(sheet))
		if st.SignedIn {
			line += fmt.Sprintf(" %s%s %s%s",
				onOff(st.IsFavourite), c.catalog.T("parkingMap.parkingSheet.favourite"),
				onOff(st.NotificationsEnabled), c.catalog.T("parkingMap.parkingSheet.notifications"))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if st.HistoryOpen && st.History != nil {
		parts := make([]string, 0, len(st.History.History))
		for _, rec := range st.History.History {
			parts = append(parts, fmt.Sprintf("%s@%s", c.paint(palette.ForOccupancy(rec.Occupancy()), rec.Occupancy().String()), c.historyTime(rec.Timestamp)))
		}
		if len(parts) == 0 {
			parts = append(parts, c.catalog.T("parkingMap.history.empty"))
		}
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", c.catalog.T("parkingMap.history.title"), st.History.SpotName, strings.Join(parts, ", ")); err != nil {
			return err
		}
	}

	return c.banner(w, st.Status, st.StatusVisible, palette)
}

// Notifications implements Renderer.
func (c *Compact) Notifications(w io.Writer, st subscriptions.State) error {
	palette := PaletteFor(st.ThemeDark)

	if err := c.busy(w, st.Busy); err != nil {
		return err
	}
	if len(st.Notifications) == 0 {
		if _, err := fmt.Fprintln(w, c.catalog.T("notifications.emptyNotificationList")); err != nil {
			return err
		}
	}
	for _, n := range st.Notifications {
		if _, err := fmt.Fprintf(w, "#%d %s\n", n.ID, n.SpotName); err != nil {
			return err
		}
	}
	if st.ConfirmOpen {
		if _, err := fmt.Fprintf(w, "%s? #%d\n", c.catalog.T("notifications.unsubscribeTitle"), st.PendingID); err != nil {
			return err
		}
	}
	return c.banner(w, st.Status, st.StatusVisible, palette)
}
