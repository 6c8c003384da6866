package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTemplateDir   = "brick"
	DefaultMaxIterations = 10
	DefaultTypePrefix    = "App"
)

// Extractor strategy names accepted by resolution.extractor.
const (
	ExtractorAuto    = "auto"
	ExtractorPattern = "pattern"
	ExtractorScanner = "scanner"
)

// Foundation is one shared-constants module, identified by a logical key.
type Foundation struct {
	Key  string `yaml:"key"`
	Path string `yaml:"path"`
}

type Config struct {
	ComponentsPath string       `yaml:"components_path"`
	TemplateDir    string       `yaml:"template_dir"`
	Foundations    []Foundation `yaml:"foundations"`
	Resolution     struct {
		MaxIterations int    `yaml:"max_iterations"`
		Extractor     string `yaml:"extractor"`
	} `yaml:"resolution"`
	Dependencies struct {
		TypePrefix string `yaml:"type_prefix"`
	} `yaml:"dependencies"`
}

// Default returns a config with every optional field populated.
func Default() *Config {
	cfg := &Config{
		ComponentsPath: "lib/src/components",
		TemplateDir:    DefaultTemplateDir,
	}
	cfg.Resolution.MaxIterations = DefaultMaxIterations
	cfg.Resolution.Extractor = ExtractorAuto
	cfg.Dependencies.TypePrefix = DefaultTypePrefix
	return cfg
}

// LoadConfig reads a YAML config file, applies .env and environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := parse(file)
	if err != nil {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document without consulting the environment.
func Parse(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BRICKGEN_COMPONENTS_PATH")); v != "" {
		cfg.ComponentsPath = v
	}
	if v := strings.TrimSpace(os.Getenv("BRICKGEN_TYPE_PREFIX")); v != "" {
		cfg.Dependencies.TypePrefix = v
	}
	if v := strings.TrimSpace(os.Getenv("BRICKGEN_EXTRACTOR")); v != "" {
		cfg.Resolution.Extractor = v
	}
}

func (c *Config) fillDefaults() {
	if strings.TrimSpace(c.TemplateDir) == "" {
		c.TemplateDir = DefaultTemplateDir
	}
	if c.Resolution.MaxIterations == 0 {
		c.Resolution.MaxIterations = DefaultMaxIterations
	}
	if strings.TrimSpace(c.Resolution.Extractor) == "" {
		c.Resolution.Extractor = ExtractorAuto
	}
}

// Validate checks the config once so later stages can trust its shape.
func (c *Config) Validate() error {
	if err := validateRelPath("components_path", c.ComponentsPath); err != nil {
		return err
	}
	if strings.ContainsAny(c.TemplateDir, `/\`) || c.TemplateDir == "." || c.TemplateDir == ".." {
		return fmt.Errorf("config: template_dir must be a plain directory name, got %q", c.TemplateDir)
	}
	if c.Resolution.MaxIterations < 1 {
		return fmt.Errorf("config: resolution.max_iterations must be positive, got %d", c.Resolution.MaxIterations)
	}
	switch c.Resolution.Extractor {
	case ExtractorAuto, ExtractorPattern, ExtractorScanner:
	default:
		return fmt.Errorf("config: resolution.extractor must be one of auto, pattern, scanner; got %q", c.Resolution.Extractor)
	}

	seen := make(map[string]bool, len(c.Foundations))
	for i, f := range c.Foundations {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return fmt.Errorf("config: foundations[%d].key is required", i)
		}
		if seen[key] {
			return fmt.Errorf("config: foundations[%d].key %q is duplicated", i, key)
		}
		seen[key] = true
		if err := validateRelPath(fmt.Sprintf("foundations[%d].path", i), f.Path); err != nil {
			return err
		}
		if !strings.HasSuffix(f.Path, ".dart") {
			return fmt.Errorf("config: foundations[%d].path must end with .dart, got %q", i, f.Path)
		}
	}
	return nil
}

func validateRelPath(field, p string) error {
	p = strings.TrimSpace(p)
	if p == "" {
		return fmt.Errorf("config: %s is required", field)
	}
	slashed := strings.ReplaceAll(p, `\`, "/")
	if path.IsAbs(slashed) {
		return fmt.Errorf("config: %s must be relative to the repository root, got %q", field, p)
	}
	for _, part := range strings.Split(path.Clean(slashed), "/") {
		if part == ".." {
			return fmt.Errorf("config: %s must stay inside the repository, got %q", field, p)
		}
	}
	return nil
}
