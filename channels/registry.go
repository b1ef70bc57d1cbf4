// Package channels maps channel names to paths on the streaming portal.
package channels

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/use-agent/streamgrab/models"
)

// ErrNotFound is returned by Resolve for names the registry does not know.
var ErrNotFound = errors.New("channel not found")

// maxCloseMatches caps the suggestions returned for an unknown name.
const maxCloseMatches = 5

// builtin lists the channels known to be on the free tier. The site path of
// each is its slug.
var builtin = []string{
	// News
	"ary-news", "geo-news-live", "express-news-live", "dunya-news-live",
	"samaa-news-live", "92-news-live", "24-news-hd-live", "hum-news-live",
	"aaj-news-live", "bol-news-live", "neo-news-live", "public-news-live",
	"gnn-news-live", "capital-news-live", "ab-tak-news-live", "city-42-live",
	"dawn-news-live", "din-news-live", "such-news-live", "k-21-news-live",
	"roze-news-live", "sun-news-hd",

	// Entertainment
	"green-entertainment", "geo-entertainment-live", "ary-digital-live",
	"hum-tv-live", "see-tv-live", "play-tv-live", "express-entertainment-live",
	"a-plus-live", "tv-one-live", "urdu-1-live",

	"tamasha-life-hd",

	// Regional
	"khyber-news-live", "avt-khyber-live", "sindh-tv-news-live",
	"ktn-news-live", "waseb-tv-live",

	// Religious
	"madani-channel-live", "qtv-live", "paigham-tv-live", "ary-qtv-live",

	"ary-zindagi-live",
}

// Category names, in display order.
const (
	CategoryNews          = "news"
	CategoryEntertainment = "entertainment"
	CategoryReligious     = "religious"
	CategoryRegional      = "regional"
	CategoryOther         = "other"
)

var categoryRules = []struct {
	name     string
	keywords []string
}{
	{CategoryNews, []string{"news", "city-42"}},
	{CategoryEntertainment, []string{"entertainment", "digital", "tv-one", "urdu", "play-tv", "see-tv", "hum-tv", "a-plus", "zindagi"}},
	{CategoryReligious, []string{"madani", "qtv", "paigham"}},
	{CategoryRegional, []string{"khyber", "avt", "sindh", "ktn", "waseb"}},
}

// Registry is an immutable set of channels. It is safe for concurrent use.
type Registry struct {
	byName map[string]models.Channel
	names  []string
}

// New builds a registry from channels. Later entries with the same name
// replace earlier ones.
func New(chs []models.Channel) *Registry {
	r := &Registry{byName: make(map[string]models.Channel, len(chs))}
	for _, ch := range chs {
		name := Canonical(ch.Name)
		if name == "" {
			continue
		}
		path := strings.Trim(ch.SitePath, "/")
		if path == "" {
			path = name
		}
		r.byName[name] = models.Channel{Name: name, SitePath: path}
	}
	r.names = make([]string, 0, len(r.byName))
	for name := range r.byName {
		r.names = append(r.names, name)
	}
	slices.Sort(r.names)
	return r
}

// Builtin returns the registry of built-in channels.
func Builtin() *Registry {
	return New(builtinChannels())
}

func builtinChannels() []models.Channel {
	chs := make([]models.Channel, len(builtin))
	for i, slug := range builtin {
		chs[i] = models.Channel{Name: slug, SitePath: slug}
	}
	return chs
}

// fileFormat is the YAML layout of a registry override file.
type fileFormat struct {
	// Replace drops the built-in list instead of merging into it.
	Replace  bool             `yaml:"replace"`
	Channels []models.Channel `yaml:"channels"`
}

// Load returns the built-in registry merged with the channels in path. An
// empty path yields the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory YAML document.
func Parse(data []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse channel file: %w", err)
	}
	for i, ch := range f.Channels {
		if Canonical(ch.Name) == "" {
			return nil, fmt.Errorf("parse channel file: entry %d has no name", i)
		}
	}
	if f.Replace {
		return New(f.Channels), nil
	}
	return New(append(builtinChannels(), f.Channels...)), nil
}

// Canonical lower-cases and trims a channel name the way lookups expect it.
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve returns the channel registered under name.
func (r *Registry) Resolve(name string) (models.Channel, error) {
	ch, ok := r.byName[Canonical(name)]
	if !ok {
		return models.Channel{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return ch, nil
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	return len(r.names)
}

// Categories groups every name by category. Every category key is present
// even when empty.
func (r *Registry) Categories() map[string][]string {
	out := map[string][]string{
		CategoryNews:          {},
		CategoryEntertainment: {},
		CategoryReligious:     {},
		CategoryRegional:      {},
		CategoryOther:         {},
	}
	for _, name := range r.names {
		c := Category(name)
		out[c] = append(out[c], name)
	}
	return out
}

// Category classifies a channel name by keyword.
func Category(name string) string {
	name = Canonical(name)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.name
			}
		}
	}
	return CategoryOther
}

// CloseMatches suggests registered names that contain name or are contained
// in it, at most five.
func (r *Registry) CloseMatches(name string) []string {
	name = Canonical(name)
	if name == "" {
		return nil
	}
	var out []string
	for _, n := range r.names {
		if strings.Contains(n, name) || strings.Contains(name, n) {
			out = append(out, n)
			if len(out) == maxCloseMatches {
				break
			}
		}
	}
	return out
}
