// Package layouts holds the cover/TOC page layout themes, loaded from
// embedded YAML so a theme tweak never requires a code change.
package layouts

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Theme is one named set of page layout constants, in points.
type Theme struct {
	Name           string  `yaml:"name"`
	Font           string  `yaml:"font"`
	Margin         float64 `yaml:"margin"`
	TitleSize      float64 `yaml:"title_size"`
	HeadingSize    float64 `yaml:"heading_size"`
	BodySize       float64 `yaml:"body_size"`
	SmallSize      float64 `yaml:"small_size"`
	PhotoMaxWidth  float64 `yaml:"photo_max_width"`
	PhotoMaxHeight float64 `yaml:"photo_max_height"`
	LogoHeight     float64 `yaml:"logo_height"`
	LineHeight     float64 `yaml:"line_height"`
}

// Registry manages the available themes.
type Registry struct {
	themes map[string]*Theme
	mu     sync.RWMutex
}

// NewRegistry loads all embedded theme files.
func NewRegistry() (*Registry, error) {
	r := &Registry{themes: make(map[string]*Theme)}

	for _, name := range []string{"default", "classic"} {
		if err := r.loadThemeFile(name); err != nil {
			return nil, fmt.Errorf("failed to load %s theme: %w", name, err)
		}
	}

	return r, nil
}

func (r *Registry) loadThemeFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var theme Theme
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	r.mu.Lock()
	r.themes[theme.Name] = &theme
	r.mu.Unlock()

	return nil
}

// Get returns a theme by name, falling back to default for unknown names.
func (r *Registry) Get(name string) *Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if theme, ok := r.themes[name]; ok {
		return theme
	}
	return r.themes["default"]
}
