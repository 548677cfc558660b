package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"supplyq/pkg/supplyq"
)

const (
	defaultStoreKind = "badger"
	defaultAddr      = ":8080"
)

type storeConfig struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
	Slot     string `yaml:"slot"`
}

type agentConfig struct {
	LearningRate   float64  `yaml:"learning_rate"`
	DiscountFactor float64  `yaml:"discount_factor"`
	Epsilon        *float64 `yaml:"epsilon"`
	QuantitySteps  int      `yaml:"quantity_steps"`
	MaxStates      int      `yaml:"max_states"`
	Seed           int64    `yaml:"seed"`
}

type simulationConfig struct {
	Preset           string  `yaml:"preset"`
	MaxOrderQuantity float64 `yaml:"max_order_quantity"`
	StepsPerEpisode  int     `yaml:"steps_per_episode"`
	Speed            float64 `yaml:"speed"`
	RunsDir          string  `yaml:"runs_dir"`
}

type serverConfig struct {
	Addr string `yaml:"addr"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// fileConfig is the on-disk shape of --config.
type fileConfig struct {
	Store      storeConfig      `yaml:"store"`
	Agent      agentConfig      `yaml:"agent"`
	Simulation simulationConfig `yaml:"simulation"`
	Server     serverConfig     `yaml:"server"`
	Log        logConfig        `yaml:"log"`
}

func defaultConfig() fileConfig {
	return fileConfig{
		Store:  storeConfig{Kind: defaultStoreKind},
		Server: serverConfig{Addr: defaultAddr},
		Log:    logConfig{Level: "info", Format: "text"},
	}
}

// loadConfig overlays the YAML file at path onto the defaults. An empty path
// returns the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c fileConfig) options(logger *slog.Logger) supplyq.Options {
	return supplyq.Options{
		StoreKind:        c.Store.Kind,
		DBPath:           c.Store.Path,
		InMemory:         c.Store.InMemory,
		Slot:             c.Store.Slot,
		RunsDir:          c.Simulation.RunsDir,
		Preset:           c.Simulation.Preset,
		Seed:             c.Agent.Seed,
		LearningRate:     c.Agent.LearningRate,
		DiscountFactor:   c.Agent.DiscountFactor,
		Epsilon:          c.Agent.Epsilon,
		QuantitySteps:    c.Agent.QuantitySteps,
		MaxStates:        c.Agent.MaxStates,
		MaxOrderQuantity: c.Simulation.MaxOrderQuantity,
		StepsPerEpisode:  c.Simulation.StepsPerEpisode,
		Speed:            c.Simulation.Speed,
		Logger:           logger,
	}
}

func newLogger(cfg logConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}
