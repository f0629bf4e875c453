package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IslandTool holds all configuration for the island tool.
type IslandTool struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Root of the island resource tree (<resource_dir>/<dir>/<name>.*).
	ResourceDir string `yaml:"resource_dir"`

	// Edge of generated depth grids, a multiple of 8.
	DepthMapSize int `yaml:"depth_map_size"`

	// Concurrent island loads.
	Workers int `yaml:"workers"`

	Planner Planner `yaml:"planner"`
	Tracer  Tracer  `yaml:"tracer"`

	// Database stores compressed depth maps when enabled.
	Database DatabaseConfig `yaml:"database"`

	Islands []IslandEntry `yaml:"islands"`
}

// Planner tunes detour search around islands.
type Planner struct {
	Candidates          int     `yaml:"candidates"`
	MinWaypointDistance float64 `yaml:"min_waypoint_distance"`
	TraceHeight         float64 `yaml:"trace_height"`
}

// Tracer configures the depth-grid line-of-sight oracle.
type Tracer struct {
	Draft float64 `yaml:"draft"` // hull draft in world units
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IslandEntry describes one island: where its resources live and its
// geometry box on the ground plane.
type IslandEntry struct {
	Name   string     `yaml:"name"`
	Dir    string     `yaml:"dir"`    // defaults to Name
	Center [2]float64 `yaml:"center"` // x, z
	Size   [2]float64 `yaml:"size"`   // full extent along x, z
}

// DefaultIslandTool returns IslandTool config with sensible defaults.
func DefaultIslandTool() IslandTool {
	return IslandTool{
		LogLevel:     "info",
		ResourceDir:  "resource/foam",
		DepthMapSize: 2048,
		Workers:      4,
		Planner: Planner{
			Candidates:          8,
			MinWaypointDistance: 80,
			TraceHeight:         0.1,
		},
		Tracer: Tracer{Draft: 1.0},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "seaisle",
			Password: "seaisle",
			DBName:   "seaisle",
			SSLMode:  "disable",
		},
	}
}

// LoadIslandTool loads island tool config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadIslandTool(path string) (IslandTool, error) {
	cfg := DefaultIslandTool()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values the tool cannot run with.
func (c IslandTool) Validate() error {
	var errs []error
	if c.DepthMapSize <= 0 || c.DepthMapSize%8 != 0 {
		errs = append(errs, fmt.Errorf("depth_map_size %d is not a positive multiple of 8", c.DepthMapSize))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Planner.Candidates <= 0 {
		errs = append(errs, fmt.Errorf("planner.candidates must be positive, got %d", c.Planner.Candidates))
	}

	seen := make(map[string]bool, len(c.Islands))
	for i, isl := range c.Islands {
		switch {
		case isl.Name == "":
			errs = append(errs, fmt.Errorf("islands[%d]: empty name", i))
		case seen[isl.Name]:
			errs = append(errs, fmt.Errorf("islands[%d]: duplicate name %q", i, isl.Name))
		}
		seen[isl.Name] = true
		if isl.Size[0] <= 0 || isl.Size[1] <= 0 {
			errs = append(errs, fmt.Errorf("islands[%d] %s: size must be positive", i, isl.Name))
		}
	}
	return errors.Join(errs...)
}

// ResourceDirOf returns the directory of an island's resources relative
// to ResourceDir.
func (e IslandEntry) ResourceDirOf() string {
	if e.Dir == "" {
		return e.Name
	}
	return e.Dir
}
