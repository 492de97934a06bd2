package parsers

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/feed-normalizer/app/feed"
)

// Config is the parsers configuration file:
//
//	parsers:
//	  rss:
//	    priority: 100
//	  liberal:
//	    enabled: false
type Config struct {
	Parsers map[string]Settings `yaml:"parsers"`
}

type Settings struct {
	Enabled  *bool `yaml:"enabled"`
	Priority *int  `yaml:"priority"`
}

func (s Settings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type constructor func(priority int) feed.Adapter

// Known adapters in registration order, which breaks priority ties.
var known = []struct {
	name     string
	priority int
	build    constructor
}{
	{NameRSS, PriorityRSS, func(p int) feed.Adapter { return NewRSS(p) }},
	{NameAtom, PriorityAtom, func(p int) feed.Adapter { return NewAtom(p) }},
	{NameUniversal, PriorityUniversal, func(p int) feed.Adapter { return NewUniversal(p) }},
	{NameLiberal, PriorityLiberal, func(p int) feed.Adapter { return NewLiberal(p) }},
}

// LoadConfig reads the parsers configuration file. A missing file yields the
// default configuration: every adapter enabled at its default priority.
func LoadConfig(path string) (*Config, error) {
	config := &Config{Parsers: map[string]Settings{}}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("Parsers configuration not found, using defaults", "path", path)
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if config.Parsers == nil {
		config.Parsers = map[string]Settings{}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid parsers config %s: %w", path, err)
	}

	return config, nil
}

func (c *Config) validate() error {
	for name, settings := range c.Parsers {
		if !isKnown(name) {
			return fmt.Errorf("unknown parser: %s", name)
		}
		if settings.Priority != nil && *settings.Priority < 0 {
			return fmt.Errorf("priority of %s must be non-negative", name)
		}
	}
	return nil
}

// Adapters builds the enabled adapters in registration order.
func (c *Config) Adapters() []feed.Adapter {
	var adapters []feed.Adapter
	for _, k := range known {
		settings := c.Parsers[k.name]
		if !settings.IsEnabled() {
			slog.Debug("Parser disabled", "parser", k.name)
			continue
		}

		priority := k.priority
		if settings.Priority != nil {
			priority = *settings.Priority
		}
		adapters = append(adapters, k.build(priority))
	}
	return adapters
}

// Default returns every known adapter at its default priority.
func Default() []feed.Adapter {
	return (&Config{}).Adapters()
}

func isKnown(name string) bool {
	for _, k := range known {
		if k.name == name {
			return true
		}
	}
	return false
}
