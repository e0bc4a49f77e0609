// Package source turns the upstream quota API, the account site, and
// the status page into plain snapshots. Everything here is a thin
// adapter: scrape mechanics and payload quirks stay inside this
// package so the engines only ever see numbers.
package source

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeriesDef describes one tracked series and how to resolve its
// access token.
type SeriesDef struct {
	Name          string `yaml:"name"`
	Primary       bool   `yaml:"primary"`
	TokenEnv      string `yaml:"token_env"`
	TokenScript   string `yaml:"token_script"`
	TokenFallback string `yaml:"token_fallback"`
}

// Definitions is the series definition file.
type Definitions struct {
	APIURL       string      `yaml:"api_url"`
	SiteScript   string      `yaml:"site_script"`
	StatusScript string      `yaml:"status_script"`
	Series       []SeriesDef `yaml:"series"`
}

// LoadDefinitions reads a series definition file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read series definitions: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse series definitions: %w", err)
	}
	if len(defs.Series) == 0 {
		return nil, fmt.Errorf("series definitions %s: no series defined", path)
	}
	return &defs, nil
}

// Primary returns the series marked primary, defaulting to the first
// entry when none is marked.
func (d *Definitions) Primary() SeriesDef {
	for _, s := range d.Series {
		if s.Primary {
			return s
		}
	}
	return d.Series[0]
}

// Names returns all series names in definition order.
func (d *Definitions) Names() []string {
	names := make([]string, 0, len(d.Series))
	for _, s := range d.Series {
		names = append(names, s.Name)
	}
	return names
}

// Lookup returns the definition for a series name.
func (d *Definitions) Lookup(name string) (SeriesDef, bool) {
	for _, s := range d.Series {
		if s.Name == name {
			return s, true
		}
	}
	return SeriesDef{}, false
}
