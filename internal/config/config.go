package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds service-level settings loaded from planweave.yml. API keys
// are never stored in the file; they come from the environment.
type Config struct {
	ListenAddr       string `yaml:"listenAddr,omitempty"`
	MCPAddr          string `yaml:"mcpAddr,omitempty"`
	SessionsPath     string `yaml:"sessionsPath,omitempty"`
	ChatModel        string `yaml:"chatModel,omitempty"`
	ChatBaseURL      string `yaml:"chatBaseURL,omitempty"`
	ResearchModel    string `yaml:"researchModel,omitempty"`
	ResearchEndpoint string `yaml:"researchEndpoint,omitempty"`
	EmbedModel       string `yaml:"embedModel,omitempty"`
	Verbose          bool   `yaml:"verbose,omitempty"`
}

// Load attempts to read planweave.yml or planweave.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"planweave.yml", "planweave.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &Config{}, nil
}

// Keys holds the API credentials read from the environment.
type Keys struct {
	OpenAI     string
	Perplexity string
}

// KeysFromEnv reads API keys from OPENAI_API_KEY and PERPLEXITY_API_KEY.
func KeysFromEnv() Keys {
	return Keys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		Perplexity: os.Getenv("PERPLEXITY_API_KEY"),
	}
}
