package search

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is the list of subreddits offered for browsing.
type Catalog struct {
	entries []types.Subreddit
}

// Group is one category of the catalog, entries sorted by name.
type Group struct {
	Category   string
	Subreddits []types.Subreddit
}

// LoadCatalog reads a catalog file. A missing file falls back to the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) || path == "" {
		logging.For("SEARCH").WithField("path", path).Debug("Catalog file missing, using built-in catalog")
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return ParseCatalog(f)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

// ParseCatalog decodes a YAML list of subreddit entries. Entries without a
// key are dropped; a missing name or category is filled in.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var raw []types.Subreddit
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	entries := make([]types.Subreddit, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, sub := range raw {
		sub.Key = strings.TrimSpace(sub.Key)
		if sub.Key == "" {
			continue
		}
		lower := strings.ToLower(sub.Key)
		if seen[lower] {
			continue
		}
		seen[lower] = true

		if sub.Name == "" {
			sub.Name = sub.Key
		}
		if sub.Category == "" {
			sub.Category = "Other"
		}
		entries = append(entries, sub)
	}

	return &Catalog{entries: entries}, nil
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Groups returns the catalog grouped by category, categories and entries
// in alphabetical order.
func (c *Catalog) Groups() []Group {
	byCategory := make(map[string][]types.Subreddit)
	for _, sub := range c.entries {
		byCategory[sub.Category] = append(byCategory[sub.Category], sub)
	}

	groups := make([]Group, 0, len(byCategory))
	for category, subs := range byCategory {
		sort.Slice(subs, func(i, j int) bool {
			return strings.ToLower(subs[i].Name) < strings.ToLower(subs[j].Name)
		})
		groups = append(groups, Group{Category: category, Subreddits: subs})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Category < groups[j].Category
	})
	return groups
}

// Lookup finds an entry by key, ignoring case.
func (c *Catalog) Lookup(key string) (types.Subreddit, bool) {
	for _, sub := range c.entries {
		if strings.EqualFold(sub.Key, key) {
			return sub, true
		}
	}
	return types.Subreddit{}, false
}
