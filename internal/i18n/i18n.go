package i18n

import (
	"embed"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var (
	// supported lists the catalog languages; the first entry is the fallback.
	supported = []language.Tag{language.English, language.Chinese}
	matcher   = language.NewMatcher(supported)

	loadOnce sync.Once
	catalogs map[language.Tag]map[string]string
	loadErr  error
)

// localeEnv is consulted in order when the configured language is "auto".
var localeEnv = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// Catalog translates message ids into one language.
type Catalog struct {
	tag      language.Tag
	messages map[string]string
	fallback map[string]string
}

// New returns the catalog for lang ("en", "zh", or "auto"/"" to follow the
// locale environment). Unsupported languages fall back to English.
func New(lang string) *Catalog {
	tables := loadCatalogs()
	tag := Resolve(lang)
	return &Catalog{
		tag:      tag,
		messages: tables[tag],
		fallback: tables[language.English],
	}
}

// Resolve maps a configured language to a supported tag.
func Resolve(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" || strings.EqualFold(lang, "auto") {
		lang = fromEnv()
	}
	if lang == "" {
		return language.English
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

func fromEnv() string {
	for _, key := range localeEnv {
		if value := localeTag(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// localeTag turns a POSIX locale such as "zh_CN.UTF-8" into "zh-CN".
func localeTag(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexAny(value, ".@"); i >= 0 {
		value = value[:i]
	}
	switch value {
	case "", "C", "POSIX":
		return ""
	}
	return strings.ReplaceAll(value, "_", "-")
}

// Tag reports the catalog language.
func (c *Catalog) Tag() language.Tag {
	return c.tag
}

// T formats the message for key. Missing translations fall back to English,
// then to the key itself.
func (c *Catalog) T(key string, args ...any) string {
	format, ok := c.lookup(key)
	if !ok {
		format = key
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func (c *Catalog) lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	if msg, ok := c.messages[key]; ok {
		return msg, true
	}
	msg, ok := c.fallback[key]
	return msg, ok
}

// Keys returns every message id in the English catalog.
func Keys() []string {
	en := loadCatalogs()[language.English]
	keys := make([]string, 0, len(en))
	for key := range en {
		keys = append(keys, key)
	}
	return keys
}

func loadCatalogs() map[language.Tag]map[string]string {
	loadOnce.Do(func() {
		catalogs = make(map[language.Tag]map[string]string, len(supported))
		for _, tag := range supported {
			name := path.Join("locales", tag.String()+".toml")
			data, err := localeFS.ReadFile(name)
			if err != nil {
				loadErr = fmt.Errorf("read %s: %w", name, err)
				continue
			}
			table := map[string]string{}
			if err := toml.Unmarshal(data, &table); err != nil {
				loadErr = fmt.Errorf("parse %s: %w", name, err)
				continue
			}
			catalogs[tag] = table
		}
	})
	return catalogs
}
