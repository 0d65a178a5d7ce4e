package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CrawlerRules are the tunable crawl heuristics loaded from YAML
type CrawlerRules struct {
	// SuggestPrompt replaces the LLM system prompt when set
	SuggestPrompt string `yaml:"suggest_prompt"`

	// LoginTemplates are candidate login URLs; %s is the app slug
	LoginTemplates []string `yaml:"login_templates"`

	// SearchIntervalSeconds spaces out search engine queries
	SearchIntervalSeconds int `yaml:"search_interval_seconds"`

	// Source is the file the rules came from, empty for defaults
	Source string `yaml:"-"`

	loadErr error
}

// LoadCrawlerRules loads crawler rules from a YAML file
func LoadCrawlerRules(configPath string) (*CrawlerRules, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/crawler.yaml",
			"/etc/console-relay/crawler.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "crawler.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}
	}

	if data == nil {
		return DefaultCrawlerRules(), nil
	}

	var rules CrawlerRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	rules.Source = loadedPath

	// Fill in defaults for empty values
	rules.fillDefaults()

	return &rules, nil
}

func (r *CrawlerRules) fillDefaults() {
	defaults := DefaultCrawlerRules()
	if r.SearchIntervalSeconds <= 0 {
		r.SearchIntervalSeconds = defaults.SearchIntervalSeconds
	}
}

// DefaultCrawlerRules returns the built-in rules; empty prompt and templates
// leave the crawler's own defaults in effect.
func DefaultCrawlerRules() *CrawlerRules {
	return &CrawlerRules{
		SearchIntervalSeconds: 2,
	}
}
