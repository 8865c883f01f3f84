package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// Bundle holds translated strings per language.
type Bundle struct {
	dict     map[string]map[string]string
	fallback string
	order    []string
	matcher  language.Matcher
}

// Default loads the embedded locales with Korean as the fallback language.
func Default() (*Bundle, error) {
	return Embedded("ko")
}

// Embedded loads the embedded locales with the given fallback language.
func Embedded(fallback string) (*Bundle, error) {
	return Load(embeddedLocales, "locales", fallback, []string{"ko", "en"})
}

// Load reads <lang>.json dictionaries from dir inside fsys.
// The fallback language must be present; other languages may be missing.
func Load(fsys fs.FS, dir string, fallback string, supported []string) (*Bundle, error) {
	if len(supported) == 0 {
		supported = []string{fallback}
	}
	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// fallback goes first so the matcher defaults to it
	ordered := append([]string{fallback}, supported...)
	seen := map[string]struct{}{}
	for _, l := range ordered {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		raw, err := fs.ReadFile(fsys, path.Join(dir, l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
		b.order = append(b.order, l)
	}
	tags := make([]language.Tag, 0, len(b.order))
	for _, l := range b.order {
		tags = append(tags, language.Make(l))
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported returns the loaded languages sorted by code.
func (b *Bundle) Supported() []string {
	out := append([]string(nil), b.order...)
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang has a loaded dictionary.
func (b *Bundle) IsSupported(lang string) bool {
	_, ok := b.dict[lang]
	return ok
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if b == nil {
		return key
	}
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Tf translates key and substitutes {name} placeholders.
func (b *Bundle) Tf(lang, key string, args map[string]string) string {
	s := b.T(lang, key)
	for k, v := range args {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

// Translator binds the bundle to a single language.
func (b *Bundle) Translator(lang string) func(string) string {
	return func(key string) string { return b.T(lang, key) }
}

// Resolve chooses the best supported language from an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(b.order) {
		return b.fallback
	}
	return b.order[idx]
}
