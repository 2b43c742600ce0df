// Package i18n picks the console locale for a client and translates catalog
// keys such as module labels.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Default is also the fallback catalog.
const Default = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

var supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(supported)

// Supported reports whether locale has a catalog.
func Supported(locale string) bool {
	for _, tag := range supported {
		if tag.String() == locale {
			return true
		}
	}
	return false
}

// Detect returns the saved locale when it is supported, else the best match
// for the Accept-Language header, else Default.
func Detect(saved, acceptLanguage string) string {
	if Supported(saved) {
		return saved
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	tag, _, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return Default
	}
	base, _ := tag.Base()
	if !Supported(base.String()) {
		return Default
	}
	return base.String()
}

type Catalog struct {
	messages map[string]map[string]string
}

// Load reads the embedded catalogs.
func Load() (*Catalog, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	c := &Catalog{messages: make(map[string]map[string]string, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		raw, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		c.messages[strings.TrimSuffix(name, ".yaml")] = flat
	}
	if _, ok := c.messages[Default]; !ok {
		return nil, fmt.Errorf("locale %s missing", Default)
	}
	return c, nil
}

// T translates key. Missing keys fall back to the default catalog, then to
// the key itself, so plain labels pass through unchanged.
func (c *Catalog) T(locale, key string) string {
	if msg, ok := c.messages[locale][key]; ok {
		return msg
	}
	if msg, ok := c.messages[Default][key]; ok {
		return msg
	}
	return key
}

// Has reports whether key exists in the default catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[Default][key]
	return ok
}

func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Keys lists every key of locale, sorted.
func (c *Catalog) Keys(locale string) []string {
	out := make([]string, 0, len(c.messages[locale]))
	for key := range c.messages[locale] {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for key, value := range node {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(full, v, out)
		case string:
			out[full] = v
		case nil:
		default:
			out[full] = fmt.Sprint(v)
		}
	}
}
