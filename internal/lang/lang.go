// Package lang holds the player-facing message catalogs.
package lang

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Message keys.
const (
	BombDeployRestricted = "BombDeployRestricted"
	WorldUnavailable     = "WorldUnavailable"
)

// English is the built-in language every lookup falls back to.
const English = "en"

//go:embed en.yaml
var builtinEnglish []byte

// Catalog maps language code -> message key -> template.
// Templates use positional placeholders: "{0}", "{1}", ...
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	messages map[string]map[string]string
}

// New creates a catalog holding the built-in English messages.
// fallback is the language used when a player's language has no entry; empty means English.
func New(fallback string) (*Catalog, error) {
	c := &Catalog{
		fallback: normalize(fallback),
		messages: make(map[string]map[string]string),
	}
	if c.fallback == "" {
		c.fallback = English
	}
	if err := c.Register(English, builtinEnglish); err != nil {
		return nil, fmt.Errorf("loading built-in messages: %w", err)
	}
	return c, nil
}

// Register merges a YAML document of key: template pairs into lang.
func (c *Catalog) Register(lang string, data []byte) error {
	var msgs map[string]string
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("lang %s: %w", lang, err)
	}

	lang = normalize(lang)
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.messages[lang]
	if !ok {
		existing = make(map[string]string, len(msgs))
		c.messages[lang] = existing
	}
	for k, v := range msgs {
		existing[k] = v
	}
	return nil
}

// LoadDir registers every <lang>.yaml / <lang>.yml file in dir.
// A missing directory is not an error. It returns the languages loaded.
func (c *Catalog) LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lang dir: %w", err)
	}

	var loaded []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return loaded, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		lang := strings.TrimSuffix(e.Name(), ext)
		if err := c.Register(lang, data); err != nil {
			return loaded, err
		}
		loaded = append(loaded, normalize(lang))
	}
	sort.Strings(loaded)
	return loaded, nil
}

// Message returns the template for key in lang, falling back to the catalog's
// fallback language, then English, then the key itself, and fills in args.
func (c *Catalog) Message(lang, key string, args ...any) string {
	c.mu.RLock()
	tmpl, ok := c.lookupLocked(normalize(lang), key)
	if !ok {
		tmpl, ok = c.lookupLocked(c.fallback, key)
	}
	if !ok {
		tmpl, ok = c.lookupLocked(English, key)
	}
	c.mu.RUnlock()

	if !ok {
		return key
	}
	return format(tmpl, args)
}

// Languages returns the registered language codes, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for l := range c.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) lookupLocked(lang, key string) (string, bool) {
	if lang == "" {
		return "", false
	}
	if msg, ok := c.messages[lang][key]; ok {
		return msg, true
	}
	// "pt-BR" falls back to "pt"
	if base, _, found := strings.Cut(lang, "-"); found {
		msg, ok := c.messages[base][key]
		return msg, ok
	}
	return "", false
}

func normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	lang = strings.ReplaceAll(lang, "_", "-")
	base, region, found := strings.Cut(lang, "-")
	if !found {
		return strings.ToLower(base)
	}
	return strings.ToLower(base) + "-" + strings.ToUpper(region)
}

func format(tmpl string, args []any) string {
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args)*2)
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(a))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
