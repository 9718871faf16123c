package workflow

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/tabtune/pkg/errors"
	"github.com/YuminosukeSato/tabtune/resample"
	"github.com/YuminosukeSato/tabtune/tune"
)

// ResamplingConfig selects the candidate-evaluation scheme for one family.
type ResamplingConfig struct {
	Method  string `yaml:"method"` // "kfold" or "oob"
	Folds   int    `yaml:"folds"`
	Repeats int    `yaml:"repeats"`
}

func (rc ResamplingConfig) spec() (resample.Spec, error) {
	switch rc.Method {
	case "", "kfold":
		folds, repeats := rc.Folds, rc.Repeats
		if folds == 0 {
			folds = 10
		}
		if repeats == 0 {
			repeats = 3
		}
		return resample.KFoldSpec(folds, repeats), nil
	case "oob":
		return resample.OOBSpec(), nil
	default:
		return resample.Spec{}, errors.NewConfigIncompatibleError("workflow", "resampling.method",
			"must be \"kfold\" or \"oob\"")
	}
}

// SweepConfig asks for a one-parameter profile after tuning.
type SweepConfig struct {
	Param  string    `yaml:"param"`
	Values []float64 `yaml:"values"`
}

// FamilyConfig describes how one model family is tuned.
type FamilyConfig struct {
	Family     string               `yaml:"family"`
	Search     string               `yaml:"search"` // "grid" (default) or "random"
	Draws      int                  `yaml:"draws"`  // candidate count for random search
	Grid       map[string][]float64 `yaml:"grid"`
	Resampling ResamplingConfig     `yaml:"resampling"`
	Sweep      *SweepConfig         `yaml:"sweep,omitempty"`
}

// candidates expands the family's grid into the candidate list, honoring
// the search strategy. Grid parameters enumerate in name order so runs are
// reproducible regardless of YAML map ordering.
func (fc FamilyConfig) candidates(seed uint64) ([]tune.Params, error) {
	if len(fc.Grid) == 0 {
		// A family with no grid runs its defaults as the single candidate.
		return []tune.Params{{}}, nil
	}
	names := make([]string, 0, len(fc.Grid))
	for name := range fc.Grid {
		names = append(names, name)
	}
	sort.Strings(names)

	g := tune.NewGrid()
	for _, name := range names {
		g.Add(name, fc.Grid[name]...)
	}

	switch fc.Search {
	case "", "grid":
		return g.Points(), nil
	case "random":
		draws := fc.Draws
		if draws <= 0 {
			draws = 10
		}
		return g.RandomPoints(draws, seed), nil
	default:
		return nil, errors.NewConfigIncompatibleError(fc.Family, "search",
			"must be \"grid\" or \"random\"")
	}
}

// Config is the full workflow configuration.
type Config struct {
	Seed          uint64         `yaml:"seed"`
	TrainFraction float64        `yaml:"train_fraction"`
	Workers       int            `yaml:"workers"` // 0 selects NumCPU-1
	Metric        string         `yaml:"metric"`  // "rmse" (default) or "r2"
	OutputDir     string         `yaml:"output_dir"`
	DataPath      string         `yaml:"data_path"` // empty uses the bundled table
	Families      []FamilyConfig `yaml:"families"`
}

// DefaultConfig reproduces the walkthrough: all four families, repeated
// 10-fold cross-validation, a random-search forest and a tree-count sweep.
func DefaultConfig() Config {
	return Config{
		Seed:          825,
		TrainFraction: 0.7,
		Metric:        "rmse",
		OutputDir:     "out",
		Families: []FamilyConfig{
			{
				Family:     string(tune.FamilyBaggedTrees),
				Grid:       map[string][]float64{"trees": {500}},
				Resampling: ResamplingConfig{Method: "kfold", Folds: 10, Repeats: 3},
			},
			{
				Family: string(tune.FamilyRandomForest),
				Search: "random",
				Draws:  5,
				Grid: map[string][]float64{
					"trees": {500},
					"mtry":  {2, 4, 6, 8, 10, 13},
				},
				Resampling: ResamplingConfig{Method: "kfold", Folds: 10, Repeats: 3},
				Sweep: &SweepConfig{
					Param:  "trees",
					Values: []float64{1000, 1500, 2000, 2500},
				},
			},
			{
				Family: string(tune.FamilyGradientBoosting),
				Grid: map[string][]float64{
					"n_estimators":  {100, 300},
					"learning_rate": {0.05, 0.1},
					"max_depth":     {2, 3},
				},
				Resampling: ResamplingConfig{Method: "kfold", Folds: 10, Repeats: 3},
			},
			{
				Family: string(tune.FamilyNeuralNet),
				Grid: map[string][]float64{
					"hidden1":       {5, 8},
					"learning_rate": {0.05},
					"epochs":        {2000},
				},
				Resampling: ResamplingConfig{Method: "kfold", Folds: 10, Repeats: 3},
			},
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults for the
// scalar settings. The families list replaces the default list entirely when
// present.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no run could honor.
func (c Config) Validate() error {
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return errors.NewConfigIncompatibleError("workflow", "train_fraction",
			"must lie strictly between 0 and 1")
	}
	switch c.Metric {
	case "", "rmse", "r2":
	default:
		return errors.NewConfigIncompatibleError("workflow", "metric",
			"must be \"rmse\" or \"r2\"")
	}
	if len(c.Families) == 0 {
		return errors.NewConfigIncompatibleError("workflow", "families",
			"at least one family is required")
	}
	known := make(map[string]bool, len(tune.Families()))
	for _, f := range tune.Families() {
		known[string(f)] = true
	}
	for _, fc := range c.Families {
		if !known[fc.Family] {
			return errors.NewConfigIncompatibleError(fc.Family, "family", "unknown model family")
		}
		if _, err := fc.Resampling.spec(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) metric() tune.Metric {
	if c.Metric == "r2" {
		return tune.MetricR2
	}
	return tune.MetricRMSE
}
