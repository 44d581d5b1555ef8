// Package config provides configuration loading for generation providers.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProviderTimeout bounds a single provider HTTP call when the
// config file does not set timeout_seconds.
const DefaultProviderTimeout = 30 * time.Second

// ProviderConfig describes one external generation endpoint.
type ProviderConfig struct {
	Name           string            `yaml:"name"`
	BaseURL        string            `yaml:"base_url"`
	APIKeyEnv      string            `yaml:"api_key_env"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	StatusPath     string            `yaml:"status_path"`
	SubmitPaths    map[string]string `yaml:"submit_paths"`
}

// ProvidersConfig represents the structure of the providers.yaml file.
// Routes map node types to provider names; node types without a route
// fall back to DefaultProvider.
type ProvidersConfig struct {
	DefaultProvider string            `yaml:"default_provider"`
	Providers       []ProviderConfig  `yaml:"providers"`
	Routes          map[string]string `yaml:"routes"`
}

// LoadProvidersConfig loads provider configuration from a YAML file.
func LoadProvidersConfig(filepath string) (ProvidersConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return ProvidersConfig{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return ProvidersConfig{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Set default timeout for providers that don't specify one
	for i := range config.Providers {
		if config.Providers[i].TimeoutSeconds == 0 {
			config.Providers[i].TimeoutSeconds = int(DefaultProviderTimeout / time.Second)
		}
	}

	// A single configured provider serves everything unless told otherwise
	if config.DefaultProvider == "" && len(config.Providers) == 1 {
		config.DefaultProvider = config.Providers[0].Name
	}

	return config, nil
}

// LoadProvidersConfigOrDefault attempts to load provider config from file,
// falling back to an empty configuration if the file doesn't exist.
// An empty configuration means no external providers; callers decide
// what backs generation in that case.
func LoadProvidersConfigOrDefault(filepath string) ProvidersConfig {
	config, err := LoadProvidersConfig(filepath)
	if err != nil {
		return ProvidersConfig{
			Providers: []ProviderConfig{},
			Routes:    map[string]string{},
		}
	}

	return config
}

// ValidateProvidersConfig validates the provider configuration.
func ValidateProvidersConfig(config ProvidersConfig) error {
	names := make(map[string]struct{}, len(config.Providers))

	for i, provider := range config.Providers {
		if err := validateProvider(provider, i); err != nil {
			return err
		}

		if _, exists := names[provider.Name]; exists {
			return fmt.Errorf("provider[%d]: duplicate provider name '%s'", i, provider.Name)
		}

		names[provider.Name] = struct{}{}
	}

	if config.DefaultProvider != "" {
		if _, exists := names[config.DefaultProvider]; !exists {
			return fmt.Errorf("default_provider references unknown provider '%s'", config.DefaultProvider)
		}
	}

	for nodeType, providerName := range config.Routes {
		if nodeType == "" {
			return fmt.Errorf("routes: node type must be a non-empty string")
		}

		if _, exists := names[providerName]; !exists {
			return fmt.Errorf("routes[%s]: references unknown provider '%s'", nodeType, providerName)
		}
	}

	return nil
}

func validateProvider(provider ProviderConfig, index int) error {
	if provider.Name == "" {
		return fmt.Errorf("provider[%d]: name is required", index)
	}

	if provider.BaseURL == "" {
		return fmt.Errorf("provider[%d]: base_url is required", index)
	}

	parsed, err := url.Parse(provider.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("provider[%d]: base_url '%s' must be an absolute URL", index, provider.BaseURL)
	}

	if provider.TimeoutSeconds < 0 {
		return fmt.Errorf("provider[%d]: timeout_seconds must not be negative", index)
	}

	if provider.StatusPath == "" {
		return fmt.Errorf("provider[%d]: status_path is required", index)
	}

	if provider.StatusPath[0] != '/' {
		return fmt.Errorf("provider[%d]: status_path must start with '/'", index)
	}

	if len(provider.SubmitPaths) == 0 {
		return fmt.Errorf("provider[%d]: at least one submit path must be configured", index)
	}

	for nodeType, path := range provider.SubmitPaths {
		if path == "" || path[0] != '/' {
			return fmt.Errorf("provider[%d].submit_paths[%s]: path must start with '/'", index, nodeType)
		}
	}

	return nil
}

// Provider returns the named provider entry.
func (c ProvidersConfig) Provider(name string) (ProviderConfig, bool) {
	for _, provider := range c.Providers {
		if provider.Name == name {
			return provider, true
		}
	}

	return ProviderConfig{}, false
}

// ProviderFor resolves the provider serving a node type. An explicit
// route wins; node types without one fall back to the default provider.
func (c ProvidersConfig) ProviderFor(nodeType string) (ProviderConfig, bool) {
	if name, ok := c.Routes[nodeType]; ok {
		return c.Provider(name)
	}

	if c.DefaultProvider != "" {
		return c.Provider(c.DefaultProvider)
	}

	return ProviderConfig{}, false
}

// SubmitPath returns the submit endpoint path configured for a node type.
func (p ProviderConfig) SubmitPath(nodeType string) (string, bool) {
	path, ok := p.SubmitPaths[nodeType]

	return path, ok
}

// APIKey resolves the bearer token from the configured environment
// variable. Providers without api_key_env run unauthenticated.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}

	return os.Getenv(p.APIKeyEnv)
}

// Timeout returns the per-request timeout for this provider.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultProviderTimeout
	}

	return time.Duration(p.TimeoutSeconds) * time.Second
}
