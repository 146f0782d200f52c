package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"parking-locator/internal/mapscreen"
	"parking-locator/internal/subscriptions"
)

// Classic renders full tables: every marker with its colour and radius,
// then the open sheet or history view.
type Classic struct {
	printer
}

// Name implements Renderer.
func (c *Classic) Name() string { return "classic" }

// Map implements Renderer.
func (c *Classic) Map(w io.Writer, st mapscreen.State) error {
	palette := PaletteFor(st.ThemeDark)

	if err := c.busy(w, st.Busy); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s %s\n\n", c.catalog.T("parkingMap.updatedAt"), st.UpdatedAt); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPOT\tSTATE\tCOLOR\tRADIUS\tLAT\tLNG\tINFO")
	for _, m := range c.markers(st) {
		name := m.Title
		if m.Closest {
			name += " *"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%.6f\t%.6f\t%s\n",
			m.SpotID, name, c.paint(m.Color, m.Occupancy.String()), m.Color.Hex,
			m.Radius, m.Latitude, m.Longitude, m.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if st.Closest != nil {
		fmt.Fprintf(w, "\n%s: %s (%.6f, %.6f)\n", c.catalog.T("parkingMap.closestSpotFound"),
			st.Closest.Name, st.Closest.Latitude, st.Closest.Longitude)
	}

	if st.SheetOpen && st.Sheet != nil {
		if err := c.sheet(w, st); err != nil {
			return err
		}
	}
	if st.HistoryOpen && st.History != nil {
		if err := c.history(w, *st.History); err != nil {
			return err
		}
	}

	return c.banner(w, st.Status, st.StatusVisible, palette)
}

func (c *Classic) sheet(w io.Writer, st mapscreen.State) error {
	sheet := *st.Sheet
	palette := PaletteFor(st.ThemeDark)
	title := c.paint(palette.ForOccupancy(sheet.Occupancy()), c.sheetTitle(sheet))

	_, err := fmt.Fprintf(w, "\n== %s ==\n%s\n", title, c.sheetText(sheet))
	if err != nil {
		return err
	}
	if st.SignedIn {
		_, err = fmt.Fprintf(w, "%s %s   %s %s\n",
			onOff(st.IsFavourite), c.catalog.T("parkingMap.parkingSheet.favourite"),
			onOff(st.NotificationsEnabled), c.catalog.T("parkingMap.parkingSheet.notifications"))
	}
	return err
}

func (c *Classic) history(w io.Writer, h mapscreen.HistoryContent) error {
	if _, err := fmt.Fprintf(w, "\n== %s %s ==\n", c.catalog.T("parkingMap.history.title"), h.SpotName); err != nil {
		return err
	}
	if len(h.History) == 0 {
		_, err := fmt.Fprintln(w, c.catalog.T("parkingMap.history.empty"))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", c.catalog.T("parkingMap.history.state"), c.catalog.T("parkingMap.history.time"))
	for _, rec := range h.History {
		fmt.Fprintf(tw, "%s\t%s\n", c.stateLabel(rec.Occupancy()), c.historyTime(rec.Timestamp))
	}
	return tw.Flush()
}

// Notifications implements Renderer.
func (c *Classic) Notifications(w io.Writer, st subscriptions.State) error {
	palette := PaletteFor(st.ThemeDark)

	if err := c.busy(w, st.Busy); err != nil {
		return err
	}
	if len(st.Notifications) == 0 {
		if _, err := fmt.Fprintln(w, c.catalog.T("notifications.emptyNotificationList")); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSPOT")
		for _, n := range st.Notifications {
			fmt.Fprintf(tw, "%d\t%s %s\n", n.ID, c.catalog.T("notifications.item"), n.SpotName)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if st.ConfirmOpen {
		fmt.Fprintf(w, "\n%s\n%s\n[%s] [%s]\n",
			c.catalog.T("notifications.unsubscribeTitle"), c.catalog.T("notifications.unsubscribeContent"),
			c.catalog.T("base.confirm"), c.catalog.T("base.close"))
	}

	return c.banner(w, st.Status, st.StatusVisible, palette)
}
