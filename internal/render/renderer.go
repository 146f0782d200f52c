package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"parking-locator/internal/i18n"
	"parking-locator/internal/mapscreen"
	"parking-locator/internal/status"
	"parking-locator/internal/subscriptions"
)

// Renderer draws screen state to a writer.
type Renderer interface {
	Name() string
	Map(w io.Writer, st mapscreen.State) error
	Notifications(w io.Writer, st subscriptions.State) error
}

// Options configures a renderer.
type Options struct {
	Catalog  *i18n.Catalog
	Location *time.Location
	// ANSI enables terminal colour escapes.
	ANSI bool
}

// Names lists the available renderers.
func Names() []string {
	return []string{"classic", "compact"}
}

// New returns the renderer called name.
func New(name string, opts Options) (Renderer, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	base := printer{
		view: view{catalog: opts.Catalog, tz: opts.Location},
		ansi: opts.ANSI,
	}
	switch strings.ToLower(name) {
	case "", "classic":
		return &Classic{printer: base}, nil
	case "compact":
		return &Compact{printer: base}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q, expected one of %s", name, strings.Join(Names(), ", "))
	}
}

// printer carries the helpers shared by both renderers.
type printer struct {
	view
	ansi bool
}

func (p printer) paint(c Color, s string) string {
	if !p.ansi || c.ANSI == "" {
		return s
	}
	return c.ANSI + s + ansiReset
}

func (p printer) banner(w io.Writer, st status.Message, visible bool, palette Palette) error {
	if !visible || st.Text == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "%s\n", p.paint(palette.ForStatus(st.Kind), "» "+st.Text))
	return err
}

func (p printer) busy(w io.Writer, busy bool) error {
	if !busy {
		return nil
	}
	_, err := fmt.Fprintln(w, p.catalog.T("base.wait"))
	return err
}
