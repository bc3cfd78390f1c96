// Package config handles configuration loading for the dashboard bundle server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Data     DataConfig     `yaml:"data"`
	Cache    CacheConfig    `yaml:"cache"`
	Colors   ColorsConfig   `yaml:"colors"`
	Palettes PalettesConfig `yaml:"palettes"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// DataConfig lists the datasets the server can serve.
type DataConfig struct {
	Dir            string
	DefaultDataset string
	Datasets       map[string]DatasetConfig

	order []string
}

// DatasetConfig describes one dataset file. Table applies to SQLite files.
type DatasetConfig struct {
	Path         string `yaml:"path"`
	ElectionType string `yaml:"election_type"`
	StateName    string `yaml:"state_name"`
	AssemblyNo   int    `yaml:"assembly_no"`
	Table        string `yaml:"table"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	RawSizeMB      int `yaml:"raw_size_mb"`
	RawTTLMinutes  int `yaml:"raw_ttl_minutes"`
	DatasetEntries int `yaml:"dataset_entries"`
}

// ColorsConfig holds the endpoint colors of the continuous and change
// scales.
type ColorsConfig struct {
	NormalMin string `yaml:"normal_min"`
	NormalMax string `yaml:"normal_max"`
	ChangeMin string `yaml:"change_min"`
	ChangeMax string `yaml:"change_max"`
}

// PalettesConfig optionally replaces the built-in palettes with JSON files.
type PalettesConfig struct {
	Party            string `yaml:"party"`
	Gender           string `yaml:"gender"`
	ConstituencyType string `yaml:"constituency_type"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UnmarshalYAML decodes the data section, keeping dataset order.
func (d *DataConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: data must be a mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "dir":
			if err := val.Decode(&d.Dir); err != nil {
				return err
			}
		case "default_dataset":
			if err := val.Decode(&d.DefaultDataset); err != nil {
				return err
			}
		case "datasets":
			if val.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: datasets must be a mapping", val.Line)
			}
			d.Datasets = make(map[string]DatasetConfig, len(val.Content)/2)
			d.order = d.order[:0]
			for j := 0; j+1 < len(val.Content); j += 2 {
				id := val.Content[j].Value
				var ds DatasetConfig
				if err := val.Content[j+1].Decode(&ds); err != nil {
					return fmt.Errorf("dataset %q: %w", id, err)
				}
				if _, dup := d.Datasets[id]; !dup {
					d.order = append(d.order, id)
				}
				d.Datasets[id] = ds
			}
		default:
			return fmt.Errorf("line %d: unknown data field %q", key.Line, key.Value)
		}
	}
	return nil
}

// DatasetIDs returns dataset IDs in the order they appear in the file.
func (d DataConfig) DatasetIDs() []string {
	return append([]string(nil), d.order...)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Data.DefaultDataset == "" {
		return nil
	}
	if _, ok := c.Data.Datasets[c.Data.DefaultDataset]; !ok && len(c.Data.Datasets) > 0 {
		return fmt.Errorf("default_dataset %q is not configured", c.Data.DefaultDataset)
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "Lokdhaba",
		},
		Data: DataConfig{
			Dir:      "./data",
			Datasets: map[string]DatasetConfig{},
		},
		Cache: CacheConfig{
			RawSizeMB:      128,
			RawTTLMinutes:  30,
			DatasetEntries: 64,
		},
		Colors: ColorsConfig{
			NormalMin: "ffffff",
			NormalMax: "0570b0",
			ChangeMin: "ca0020",
			ChangeMax: "0571b0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = defaults.Data.Dir
	}
	if cfg.Data.Datasets == nil {
		cfg.Data.Datasets = defaults.Data.Datasets
	}
	if cfg.Data.DefaultDataset == "" && len(cfg.Data.order) > 0 {
		cfg.Data.DefaultDataset = cfg.Data.order[0]
	}
	if cfg.Cache.RawSizeMB == 0 {
		cfg.Cache.RawSizeMB = defaults.Cache.RawSizeMB
	}
	if cfg.Cache.RawTTLMinutes == 0 {
		cfg.Cache.RawTTLMinutes = defaults.Cache.RawTTLMinutes
	}
	if cfg.Cache.DatasetEntries == 0 {
		cfg.Cache.DatasetEntries = defaults.Cache.DatasetEntries
	}
	if cfg.Colors.NormalMin == "" {
		cfg.Colors.NormalMin = defaults.Colors.NormalMin
	}
	if cfg.Colors.NormalMax == "" {
		cfg.Colors.NormalMax = defaults.Colors.NormalMax
	}
	if cfg.Colors.ChangeMin == "" {
		cfg.Colors.ChangeMin = defaults.Colors.ChangeMin
	}
	if cfg.Colors.ChangeMax == "" {
		cfg.Colors.ChangeMax = defaults.Colors.ChangeMax
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}
