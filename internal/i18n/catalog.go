// Package i18n loads the localized message catalog.
//
// Locale files are YAML documents with the locale as the single top-level
// key and messages nested below it:
//
//	fr:
//	  financial_year_exchange:
//	    csv_file_journals_invalid: "Les journaux suivants n'existent pas : %{codes}."
//
// Nested keys are flattened with dots ("financial_year_exchange.csv_file_journals_invalid").
// Placeholders use the %{name} form and are replaced by Translate.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/JonMunkholm/fyexchange/internal/core"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yml
var embedded embed.FS

// DefaultLocale is used when no locale is configured.
const DefaultLocale = "fr"

var placeholder = regexp.MustCompile(`%\{(\w+)\}`)

// Catalog holds flattened messages per locale.
type Catalog struct {
	defaultLocale string
	messages      map[string]map[string]string
}

// Load reads the locale files shipped with the binary.
func Load(defaultLocale string) (*Catalog, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return New(sub, defaultLocale)
}

// New reads every *.yml file at the root of fsys.
func New(fsys fs.FS, defaultLocale string) (*Catalog, error) {
	if defaultLocale == "" {
		defaultLocale = DefaultLocale
	}

	c := &Catalog{
		defaultLocale: normalizeLocale(defaultLocale),
		messages:      make(map[string]map[string]string),
	}

	files, err := fs.Glob(fsys, "*.yml")
	if err != nil {
		return nil, fmt.Errorf("list locale files: %w", err)
	}
	for _, name := range files {
		if err := c.loadFile(fsys, name); err != nil {
			return nil, err
		}
	}

	if _, ok := c.messages[c.defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q not found in catalog (have %s)",
			c.defaultLocale, strings.Join(c.Locales(), ", "))
	}
	return c, nil
}

func (c *Catalog) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path.Base(name), err)
	}

	for locale, tree := range doc {
		locale = normalizeLocale(locale)
		messages, ok := c.messages[locale]
		if !ok {
			messages = make(map[string]string)
			c.messages[locale] = messages
		}
		if err := flatten("", tree, messages); err != nil {
			return fmt.Errorf("parse %s: %w", path.Base(name), err)
		}
	}
	return nil
}

func flatten(prefix string, node any, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(key, child, out); err != nil {
				return err
			}
		}
	case string:
		out[prefix] = v
	case nil:
		// empty node
	default:
		return fmt.Errorf("key %q: unsupported value of type %T", prefix, node)
	}
	return nil
}

// Locales returns the loaded locales, sorted.
func (c *Catalog) Locales() []string {
	locales := make([]string, 0, len(c.messages))
	for l := range c.messages {
		locales = append(locales, l)
	}
	sort.Strings(locales)
	return locales
}

// Has reports whether the catalog contains the locale.
func (c *Catalog) Has(locale string) bool {
	_, ok := c.messages[normalizeLocale(locale)]
	return ok
}

// DefaultLocale returns the locale used for fallbacks.
func (c *Catalog) DefaultLocale() string {
	return c.defaultLocale
}

// For returns a translator for locale. Unknown locales, and keys missing in
// the requested locale, fall back to the default locale.
func (c *Catalog) For(locale string) core.Translator {
	return Localizer{catalog: c, locale: normalizeLocale(locale)}
}

// Localizer translates into one locale.
type Localizer struct {
	catalog *Catalog
	locale  string
}

// Translate resolves key and substitutes %{name} placeholders from params.
// A key found in no locale is returned unchanged so the gap shows up in the UI.
func (l Localizer) Translate(key string, params map[string]string) string {
	msg, ok := l.catalog.messages[l.locale][key]
	if !ok {
		msg, ok = l.catalog.messages[l.catalog.defaultLocale][key]
	}
	if !ok {
		return key
	}
	if len(params) == 0 {
		return msg
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := params[name]; ok {
			return v
		}
		return m
	})
}

// normalizeLocale maps "fr-FR", "fr_FR" and "FR" to "fr".
func normalizeLocale(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}
