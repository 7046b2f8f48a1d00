// Package config describes where the statistics come from and how they are
// sampled. A configuration is read from a YAML file and may be overridden by
// RNASTATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config configures a statistics registry.
type Config struct {
	// StatsFile is the corpus holding stems, loops, tails and angles.
	StatsFile string `yaml:"stats_file"`
	// ClusteredAngleFile, when set, replaces the angles of StatsFile by a
	// clustered angle corpus.
	ClusteredAngleFile string `yaml:"clustered_angle_file"`
	// FilterFile, when set, restricts junctions to the angle records it
	// lists, with probability FilterProb.
	FilterFile string  `yaml:"filter_file"`
	FilterProb float64 `yaml:"filter_prob"`
	MinEntries int     `yaml:"min_entries"`
	// Seed seeds every random choice; zero seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		StatsFile:  "stats/all.stats",
		FilterProb: 1,
		MinEntries: 10,
	}
}

// Load reads the configuration at path on top of Default and applies the
// environment overrides. An empty path only applies the overrides. Relative
// file names in the configuration are resolved against the directory of
// path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		defer fh.Close()

		err = yaml.NewDecoder(fh).Decode(cfg)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}

		dir := filepath.Dir(path)
		for _, file := range []*string{&cfg.StatsFile, &cfg.ClusteredAngleFile, &cfg.FilterFile} {
			if *file != "" && !filepath.IsAbs(*file) {
				*file = filepath.Join(dir, *file)
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RNASTATS_STATS_FILE"); v != "" {
		cfg.StatsFile = v
	}
	if v := os.Getenv("RNASTATS_CLUSTERED_ANGLE_FILE"); v != "" {
		cfg.ClusteredAngleFile = v
	}
	if v := os.Getenv("RNASTATS_FILTER_FILE"); v != "" {
		cfg.FilterFile = v
	}
	if v := os.Getenv("RNASTATS_FILTER_PROB"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.FilterProb = p
		}
	}
	if v := os.Getenv("RNASTATS_MIN_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinEntries = n
		}
	}
	if v := os.Getenv("RNASTATS_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = seed
		}
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.StatsFile == "":
		return errors.New("config: stats_file is required")
	case c.FilterProb < 0 || c.FilterProb > 1:
		return fmt.Errorf("config: filter_prob %v is not in [0, 1]", c.FilterProb)
	case c.MinEntries < 0:
		return fmt.Errorf("config: min_entries %d is negative", c.MinEntries)
	}
	return nil
}
