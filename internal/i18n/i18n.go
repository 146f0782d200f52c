// Package i18n holds the localized message catalogs used by every screen.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when a key is missing in the requested locale.
const DefaultLocale = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog translates dotted message keys such as "parkingMap.noFavSpot".
type Catalog struct {
	locale   string
	messages map[string]map[string]string
}

// Load parses the embedded catalogs and selects locale. An unknown locale
// falls back to DefaultLocale.
func Load(locale string) (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}

	messages := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		raw, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", entry.Name(), err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", entry.Name(), err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		messages[strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))] = flat
	}

	if _, ok := messages[locale]; !ok {
		locale = DefaultLocale
	}
	return &Catalog{locale: locale, messages: messages}, nil
}

// MustLoad is Load for callers that cannot continue without a catalog.
func MustLoad(locale string) *Catalog {
	c, err := Load(locale)
	if err != nil {
		panic(err)
	}
	return c
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Locale returns the active locale.
func (c *Catalog) Locale() string {
	return c.locale
}

// Locales returns every locale the catalog knows.
func (c *Catalog) Locales() []string {
	locales := make([]string, 0, len(c.messages))
	for l := range c.messages {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}

// T translates key. Missing keys fall back to the default locale and then
// to the key itself.
func (c *Catalog) T(key string) string {
	if msg, ok := c.messages[c.locale][key]; ok {
		return msg
	}
	if msg, ok := c.messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}
