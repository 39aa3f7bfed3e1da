package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shiftcycle/shiftopt/pkg/model"
)

// OptimizerDefaults is a YAML-loaded set of default optimiser knobs that
// ApplyTo can overlay on a job's options where its own optimizerOptions
// payload leaves a field unset. A profile carries every
// model.OptimizerOptions field except Weights, CrossoverMode and
// MutationMode, and gives the GA timeout in whole seconds. The server
// itself neither loads a defaults file nor calls ApplyTo.
type OptimizerDefaults struct {
	Schedule OptimizerProfile `yaml:"schedule"`
	Matrix   OptimizerProfile `yaml:"matrix"`
}

// OptimizerProfile is one GA's tunable defaults.
type OptimizerProfile struct {
	UseGA             *bool    `yaml:"use_ga,omitempty"`
	GreedyFallback    *bool    `yaml:"greedy_fallback,omitempty"`
	GATimeoutSeconds  *int     `yaml:"ga_timeout_seconds,omitempty"`
	PopulationSize    *int     `yaml:"population_size,omitempty"`
	MaxGenerations    *int     `yaml:"max_generations,omitempty"`
	StagnationLimit   *int     `yaml:"stagnation_limit,omitempty"`
	EliteCount        *int     `yaml:"elite_count,omitempty"`
	MutationRate      *float64 `yaml:"mutation_rate,omitempty"`
	CrossoverRate     *float64 `yaml:"crossover_rate,omitempty"`
	TournamentSize    *int     `yaml:"tournament_size,omitempty"`
	BaselineAdherence *float64 `yaml:"baseline_adherence,omitempty"`
	UseCurrentAsSeed  *bool    `yaml:"use_current_as_seed,omitempty"`
}

// LoadOptimizerDefaults reads a YAML defaults file. A missing file is not
// an error — callers get a zero-value OptimizerDefaults, meaning "every
// job falls back to each component's own built-in defaults".
func LoadOptimizerDefaults(path string) (*OptimizerDefaults, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &OptimizerDefaults{}, nil
	}
	if err != nil {
		return nil, err
	}
	var defaults OptimizerDefaults
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// ApplyTo overlays the profile's non-nil fields onto opts, leaving any
// field the request itself already set untouched — request options
// always win over deploy-wide defaults.
func (p OptimizerProfile) ApplyTo(opts *model.OptimizerOptions) *model.OptimizerOptions {
	if opts == nil {
		opts = &model.OptimizerOptions{}
	}
	if opts.UseGA == nil {
		opts.UseGA = p.UseGA
	}
	if opts.GreedyFallback == nil {
		opts.GreedyFallback = p.GreedyFallback
	}
	if opts.GATimeout == nil && p.GATimeoutSeconds != nil {
		d := time.Duration(*p.GATimeoutSeconds) * time.Second
		opts.GATimeout = &d
	}
	if opts.PopulationSize == nil {
		opts.PopulationSize = p.PopulationSize
	}
	if opts.MaxGenerations == nil {
		opts.MaxGenerations = p.MaxGenerations
	}
	if opts.StagnationLimit == nil {
		opts.StagnationLimit = p.StagnationLimit
	}
	if opts.EliteCount == nil {
		opts.EliteCount = p.EliteCount
	}
	if opts.MutationRate == nil {
		opts.MutationRate = p.MutationRate
	}
	if opts.CrossoverRate == nil {
		opts.CrossoverRate = p.CrossoverRate
	}
	if opts.TournamentSize == nil {
		opts.TournamentSize = p.TournamentSize
	}
	if opts.BaselineAdherence == nil {
		opts.BaselineAdherence = p.BaselineAdherence
	}
	if opts.UseCurrentAsSeed == nil {
		opts.UseCurrentAsSeed = p.UseCurrentAsSeed
	}
	return opts
}

