// Package config loads llmpulse settings from YAML or TOML files and
// prompt lists from plain text files. Command-line flags always win
// over file values; the merge happens in the run command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when no explicit config is given,
// followed by ~/.llmpulse/config.yaml.
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"config.toml",
}

// File mirrors the run command's flags. Pointer fields distinguish
// "absent" from a zero value so the CLI can override selectively.
type File struct {
	Endpoint        string   `yaml:"endpoint" toml:"endpoint"`
	APIKey          string   `yaml:"api_key" toml:"api_key"`
	Model           string   `yaml:"model" toml:"model"`
	Prompt          string   `yaml:"prompt" toml:"prompt"`
	PromptFile      string   `yaml:"prompt_file" toml:"prompt_file"`
	Streaming       *bool    `yaml:"streaming" toml:"streaming"`
	Runs            *int     `yaml:"runs" toml:"runs"`
	TimeoutSeconds  *float64 `yaml:"timeout" toml:"timeout"`
	Output          string   `yaml:"output" toml:"output"`
	JSONOutput      *bool    `yaml:"json_output" toml:"json_output"`
	ReasoningEffort string   `yaml:"reasoning_effort" toml:"reasoning_effort"`
	MaxTokens       *int     `yaml:"max_tokens" toml:"max_tokens"`
	NoCache         *bool    `yaml:"no_cache" toml:"no_cache"`

	// Path records which file the values came from, "" when none.
	Path string `yaml:"-" toml:"-"`
}

// Load reads the config at explicit, or walks the default search paths
// when explicit is empty. A missing explicit path is an error; no file
// anywhere just yields an empty config.
func Load(explicit string) (*File, error) {
	if explicit != "" {
		return parseFile(explicit)
	}

	paths := append([]string{}, DefaultPaths...)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".llmpulse", "config.yaml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		return parseFile(p)
	}
	return &File{}, nil
}

func parseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config %s: %w", path, err)
	}

	var cfg File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	}

	cfg.Path = path
	return &cfg, nil
}

// LoadPrompts reads one prompt per line. Blank lines and lines starting
// with # are skipped; a file with nothing left is an error.
func LoadPrompts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read prompt file %s: %w", path, err)
	}

	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}

	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts found in %s", path)
	}
	return prompts, nil
}
