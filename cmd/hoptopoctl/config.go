package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"hoptopo/internal/evo"
	"hoptopo/internal/scoring"
	"hoptopo/internal/storage"
	"hoptopo/pkg/hoptopo"
)

// FileConfig is the YAML layout accepted by -config. Command-line flags that
// are set explicitly override file values.
type FileConfig struct {
	Store    string         `yaml:"store"`
	DBPath   string         `yaml:"db_path"`
	Seed     int64          `yaml:"seed"`
	LogLevel string         `yaml:"log_level"`
	Patterns PatternsConfig `yaml:"patterns"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Build    BuildConfig    `yaml:"build"`
	Optimize OptimizeConfig `yaml:"optimize"`
}

type PatternsConfig struct {
	Nodes  int     `yaml:"nodes"`
	Count  int     `yaml:"count"`
	Bias   float64 `yaml:"bias"`
	States [][]int `yaml:"states"`
}

type ScoringConfig struct {
	Alpha    float64 `yaml:"alpha"`
	CostMean float64 `yaml:"cost_mean"`
	CostStd  float64 `yaml:"cost_std"`
	Runs     int     `yaml:"runs"`
	Epsilon  float64 `yaml:"epsilon"`
}

type BuildConfig struct {
	Builder      string  `yaml:"builder"`
	Edges        int     `yaml:"edges"`
	K            int     `yaml:"k"`
	MutualOnly   bool    `yaml:"mutual_only"`
	InGroupProb  float64 `yaml:"in_group_prob"`
	OutGroupProb float64 `yaml:"out_group_prob"`
	RewireProb   float64 `yaml:"rewire_prob"`
}

type OptimizeConfig struct {
	NetworkID      string  `yaml:"network_id"`
	Edges          int     `yaml:"edges"`
	MaxIter        int     `yaml:"max_iter"`
	MovesPerIter   int     `yaml:"moves_per_iter"`
	MovePolicy     string  `yaml:"move_policy"`
	MoveMultiplier float64 `yaml:"move_multiplier"`
	MaxMoves       int     `yaml:"max_moves"`
	MoveDecay      float64 `yaml:"move_decay"`
	Acceptance     string  `yaml:"acceptance"`
	Beta           float64 `yaml:"beta"`
	Proposal       string  `yaml:"proposal"`
	SaveFreq       int     `yaml:"save_freq"`
	Chains         int     `yaml:"chains"`
	Workers        int     `yaml:"workers"`
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		Store:    storage.DefaultStoreKind(),
		DBPath:   "hoptopo.db",
		Seed:     1,
		LogLevel: "info",
		Patterns: PatternsConfig{Nodes: 50, Count: 3, Bias: 0.5},
		Scoring: ScoringConfig{
			Alpha:    scoring.DefaultAlpha,
			CostMean: scoring.DefaultCostMean,
			CostStd:  scoring.DefaultCostStd,
			Runs:     scoring.DefaultRuns,
			Epsilon:  scoring.DefaultEpsilon,
		},
		Build: BuildConfig{Builder: hoptopo.BuilderPrune, Edges: 100, K: 4, InGroupProb: 1, OutGroupProb: 0.1},
		Optimize: OptimizeConfig{
			Edges:          100,
			MaxIter:        500,
			MovesPerIter:   1,
			MovePolicy:     evo.MovesConst,
			MoveMultiplier: 0.05,
			MoveDecay:      0.99,
			Acceptance:     evo.AcceptMetropolis,
			Beta:           evo.DefaultBeta,
			Proposal:       evo.ProposalRewire,
			SaveFreq:       100,
			Chains:         1,
			Workers:        1,
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c FileConfig) patternSpec() hoptopo.PatternSpec {
	return hoptopo.PatternSpec{
		States: c.Patterns.States,
		Nodes:  c.Patterns.Nodes,
		Count:  c.Patterns.Count,
		Bias:   c.Patterns.Bias,
	}
}

func (c FileConfig) scoringOptions() hoptopo.ScoringOptions {
	return hoptopo.ScoringOptions{
		Alpha:    hoptopo.Float(c.Scoring.Alpha),
		CostMean: c.Scoring.CostMean,
		CostStd:  c.Scoring.CostStd,
		Runs:     c.Scoring.Runs,
		Epsilon:  c.Scoring.Epsilon,
	}
}

func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}
