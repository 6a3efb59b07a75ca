package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/yolc/pkg/cli"
)

type Feature int

const (
	FeatCComments Feature = iota
	FeatBlockComments
	FeatCompoundAssign
	FeatImports
	FeatCount
)

const (
	DefaultLineLength = 70
	DefaultLineCount  = 20
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	FeatureMap map[string]Feature

	// Physical limits of the target chip. Carried to the layout stage, not enforced here.
	LineLength int
	LineCount  int
	Configs    []string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		FeatureMap: make(map[string]Feature),
		LineLength: DefaultLineLength,
		LineCount:  DefaultLineCount,
	}

	features := map[Feature]Info{
		FeatCComments:      {"c-comments", true, "Recognize C-style '//' line comments."},
		FeatBlockComments:  {"block-comments", true, "Recognize '/* */' block comments."},
		FeatCompoundAssign: {"compound-assign", true, "Recognize assignment operators like '+=' and desugar them."},
		FeatImports:        {"imports", true, "Allow `import` declarations."},
	}

	cfg.Features = features
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}

	return cfg
}

// SetLimits sets the physical line length and line count of the target.
func (c *Config) SetLimits(lineLength, lineCount int) error {
	if lineLength <= 0 {
		return fmt.Errorf("line length must be positive, got %d", lineLength)
	}
	if lineCount <= 0 {
		return fmt.Errorf("line count must be positive, got %d", lineCount)
	}
	c.LineLength, c.LineCount = lineLength, lineCount
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

// ApplyFlag applies a single '-F<name>' or '-Fno-<name>' flag.
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(flag, "-"), "F")
	enable := !strings.HasPrefix(trimmed, "no-")
	name := strings.TrimPrefix(trimmed, "no-")

	f, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(f, enable)
	return nil
}

// SetupFlagGroups registers the -F<feature> flag group and returns its entries
// indexed by Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) []cli.FlagGroupEntry {
	entries := make([]cli.FlagGroupEntry, FeatCount)
	for ft := Feature(0); ft < FeatCount; ft++ {
		info := c.Features[ft]
		enabled, disabled := info.Enabled, false
		entries[ft] = cli.FlagGroupEntry{
			Name:     info.Name,
			Prefix:   "F",
			Usage:    info.Description,
			Enabled:  &enabled,
			Disabled: &disabled,
		}
	}
	fs.AddFlagGroup("Features", "Language features", "feature", "Available Features:", entries)
	return entries
}

// ApplyFlagGroups copies parsed group flags back into the config. Disabling wins.
func (c *Config) ApplyFlagGroups(entries []cli.FlagGroupEntry) {
	for i, entry := range entries {
		if entry.Enabled != nil {
			c.SetFeature(Feature(i), *entry.Enabled)
		}
		if entry.Disabled != nil && *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

// EnabledFeatures lists the enabled feature names in sorted order.
func (c *Config) EnabledFeatures() []string {
	var names []string
	for _, info := range c.Features {
		if info.Enabled {
			names = append(names, info.Name)
		}
	}
	sort.Strings(names)
	return names
}
