package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"parking-locator/internal/i18n"
	"parking-locator/internal/mapscreen"
	"parking-locator/internal/model"
	"parking-locator/internal/status"
	"parking-locator/internal/subscriptions"
)

var updated = time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC)

func threeSpotState() mapscreen.State {
	return mapscreen.State{
		UpdatedAt: "13:04:05",
		Spots: []model.ParkingSpot{
			{ID: 1, Name: "A-1", Latitude: 49.2, Longitude: 18.75, Occupied: null.BoolFrom(true), UpdatedAt: updated},
			{ID: 2, Name: "A-2", Latitude: 49.2, Longitude: 18.75, Occupied: null.BoolFrom(false), UpdatedAt: updated},
			{ID: 3, Name: "zaliv-1", Latitude: 49.2, Longitude: 18.75, Occupied: null.Bool{}, UpdatedAt: updated},
		},
	}
}

func newRenderer(t *testing.T, name string) Renderer {
	t.Helper()
	r, err := New(name, Options{Catalog: i18n.MustLoad("en"), Location: time.UTC})
	require.NoError(t, err)
	return r
}

func TestMarkers_TriStateColorsAreDistinct(t *testing.T) {
	for _, dark := range []bool{false, true} {
		st := threeSpotState()
		st.ThemeDark = dark

		markers := Markers(st, i18n.MustLoad("en"), time.UTC)

		require.Len(t, markers, 3)
		occupied, free, unknown := markers[0].Color, markers[1].Color, markers[2].Color
		assert.Equal(t, errorColor, occupied)
		assert.Equal(t, successColor, free)
		assert.Equal(t, "gray", unknown.Name)
		assert.NotEqual(t, occupied.Hex, free.Hex)
		assert.NotEqual(t, occupied.Hex, unknown.Hex)
		assert.NotEqual(t, free.Hex, unknown.Hex)
	}
}

func TestMarkers_RadiusAndDescription(t *testing.T) {
	st := threeSpotState()
	st.Closest = &st.Spots[1]

	markers := Markers(st, i18n.MustLoad("en"), time.UTC)

	assert.Equal(t, 0.75, markers[0].Radius)
	assert.Equal(t, 1.1, markers[2].Radius)
	assert.Equal(t, "Updated at 13:04:05", markers[0].Description)
	assert.False(t, markers[0].Closest)
	assert.True(t, markers[1].Closest)
}

func TestSheetText(t *testing.T) {
	v := view{catalog: i18n.MustLoad("en"), tz: time.UTC}
	since := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		sheet     mapscreen.SheetContent
		wantTitle string
		wantText  string
	}{
		{
			name: "occupied with since",
			sheet: mapscreen.SheetContent{SpotName: "A-1", Occupied: null.BoolFrom(true),
				Detail: model.ParkingSpotDetail{StateSince: null.TimeFrom(since)}},
			wantTitle: "A-1 - occupied",
			wantText:  "Occupied since: 08:30:00 01.05.2024",
		},
		{
			name:      "free without since",
			sheet:     mapscreen.SheetContent{SpotName: "A-2", Occupied: null.BoolFrom(false)},
			wantTitle: "A-2 - free",
			wantText:  "Free since: no data",
		},
		{
			name:      "unknown",
			sheet:     mapscreen.SheetContent{SpotName: "A-3"},
			wantTitle: "A-3 - unknown",
			wantText:  "The state of this spot is unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTitle, v.sheetTitle(tt.sheet))
			assert.Equal(t, tt.wantText, v.sheetText(tt.sheet))
		})
	}
}

func TestNew_UnknownRenderer(t *testing.T) {
	_, err := New("fancy", Options{Catalog: i18n.MustLoad("en")})
	assert.Error(t, err)
}

func TestClassic_Map(t *testing.T) {
	st := threeSpotState()
	st.SheetOpen = true
	st.SignedIn = true
	st.IsFavourite = true
	st.Sheet = &mapscreen.SheetContent{SpotID: 2, SpotName: "A-2", Occupied: null.BoolFrom(false)}
	st.Status = status.Message{Key: "base.loadSuccess", Text: "Data loaded", Kind: status.KindSuccess}
	st.StatusVisible = true

	var buf bytes.Buffer
	require.NoError(t, newRenderer(t, "classic").Map(&buf, st))

	out := buf.String()
	assert.Contains(t, out, "Updated at 13:04:05")
	assert.Contains(t, out, "#e53935")
	assert.Contains(t, out, "#43a047")
	assert.Contains(t, out, "#808080")
	assert.Contains(t, out, "== A-2 - free ==")
	assert.Contains(t, out, "[x] Favourite")
	assert.Contains(t, out, "[ ] Notify me")
	assert.Contains(t, out, "Data loaded")
	assert.NotContains(t, out, "\x1b[")
}

func TestClassic_History(t *testing.T) {
	st := threeSpotState()
	st.HistoryOpen = true
	st.History = &mapscreen.HistoryContent{
		SpotID:   1,
		SpotName: "A-1",
		History: []model.SpotHistoryRecord{
			{Occupied: null.BoolFrom(true), Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
			{Occupied: null.Bool{}, Timestamp: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, newRenderer(t, "classic").Map(&buf, st))

	out := buf.String()
	assert.Contains(t, out, "== History of A-1 ==")
	assert.Contains(t, out, "09:00:00 01.05.2024")
	assert.Contains(t, out, "unknown")
}

func TestCompact_Map(t *testing.T) {
	st := threeSpotState()
	st.Busy = true
	st.Closest = &st.Spots[1]

	var buf bytes.Buffer
	require.NoError(t, newRenderer(t, "compact").Map(&buf, st))

	out := buf.String()
	assert.Contains(t, out, "Please wait...")
	assert.Contains(t, out, " x A-1")
	assert.Contains(t, out, ">o A-2")
	assert.Contains(t, out, " ? zaliv-1")
}

func TestCompact_ANSI(t *testing.T) {
	r, err := New("compact", Options{Catalog: i18n.MustLoad("en"), Location: time.UTC, ANSI: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Map(&buf, threeSpotState()))

	out := buf.String()
	assert.Contains(t, out, errorColor.ANSI+"x"+ansiReset)
	assert.Contains(t, out, successColor.ANSI+"o"+ansiReset)
	assert.Contains(t, out, unknownColor.ANSI+"?"+ansiReset)
}

func TestNotifications(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			r := newRenderer(t, name)

			var empty bytes.Buffer
			require.NoError(t, r.Notifications(&empty, subscriptions.State{}))
			assert.Contains(t, empty.String(), "You have no notifications")

			var buf bytes.Buffer
			st := subscriptions.State{
				Notifications: []model.SpotNotification{{ID: 4, SpotName: "A-1"}},
				ConfirmOpen:   true,
				PendingID:     4,
			}
			require.NoError(t, r.Notifications(&buf, st))
			assert.Contains(t, buf.String(), "A-1")
			assert.Contains(t, buf.String(), "Unsubscribe")
		})
	}
}
