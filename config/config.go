// Package config loads and validates the harness configuration.
//
// A run is described by a YAML file whose fields override Default(). The
// result is validated with go-playground/validator struct tags; failures are
// reported as *errors.ValidationError.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/treebench/pkg/errors"
)

// Backend kinds known to the registry.
const (
	KindCART       = "cart"
	KindRandomTree = "randomtree"
)

// Zero-division policies for the weighted F-measure.
const (
	ZeroDivisionZero = "zero"
	ZeroDivisionNaN  = "nan"
)

// Config is the full run configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Harness    HarnessConfig    `yaml:"harness"`
	Backends   []Backend        `yaml:"backends" validate:"len=2,dive"`
	Runtime    RuntimeConfig    `yaml:"runtime"`
	Output     OutputConfig     `yaml:"output"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// CorpusConfig locates dataset files.
type CorpusConfig struct {
	Root      string `yaml:"root" validate:"required"`
	Extension string `yaml:"extension" validate:"required"`
}

// PreprocessConfig controls imputation. Seed 0 seeds from the clock, which
// makes the feature matrix differ between runs.
type PreprocessConfig struct {
	Seed uint64 `yaml:"seed"`
}

// HarnessConfig controls the cross-validation protocol.
type HarnessConfig struct {
	Folds           int    `yaml:"folds" validate:"gte=2"`
	Seed            uint64 `yaml:"seed"`
	SharedFolds     bool   `yaml:"shared_folds"`
	SkipUnimputable bool   `yaml:"skip_unimputable"`
}

// Backend configures one classifier implementation.
type Backend struct {
	Name         string `yaml:"name" validate:"required"`
	Kind         string `yaml:"kind" validate:"oneof=cart randomtree"`
	MaxDepth     int    `yaml:"max_depth" validate:"gte=0"`
	Splitter     string `yaml:"splitter" validate:"omitempty,oneof=best random"`
	Criterion    string `yaml:"criterion" validate:"omitempty,oneof=gini entropy"`
	MinLeaf      int    `yaml:"min_samples_leaf" validate:"gte=1"`
	KValue       int    `yaml:"k_value" validate:"gte=0"`
	Seed         int64  `yaml:"seed"`
	ZeroDivision string `yaml:"zero_division" validate:"oneof=zero nan"`
	// ParallelThreshold is the feature count above which split search fans
	// out over goroutines. 0 disables the parallel path.
	ParallelThreshold int `yaml:"parallel_threshold" validate:"gte=0"`
}

// RuntimeConfig configures the embedded execution environment that hosts
// runtime-bound backends.
type RuntimeConfig struct {
	Enabled   bool `yaml:"enabled"`
	QueueSize int  `yaml:"queue_size" validate:"gte=1"`
}

// OutputConfig selects report destinations. Empty paths disable a writer.
type OutputConfig struct {
	Format      string `yaml:"format" validate:"oneof=text csv both"`
	CSVDir      string `yaml:"csv_dir"`
	PlotPath    string `yaml:"plot_path"`
	MetricsPath string `yaml:"metrics_path"`
}

// Default mirrors the reference experiment: a depth-3 random-splitter CART
// against a depth-3 random tree, 10 folds, seed 1.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "json"},
		Corpus: CorpusConfig{Root: "./datasets", Extension: "arff"},
		Preprocess: PreprocessConfig{
			Seed: 1,
		},
		Harness: HarnessConfig{
			Folds:       10,
			Seed:        1,
			SharedFolds: true,
		},
		Backends: []Backend{
			{
				Name:         "sklearn",
				Kind:         KindCART,
				MaxDepth:     3,
				Splitter:     "random",
				Criterion:    "gini",
				MinLeaf:      1,
				Seed:         1,
				ZeroDivision: ZeroDivisionZero,
			},
			{
				Name:         "weka",
				Kind:         KindRandomTree,
				MaxDepth:     3,
				MinLeaf:      1,
				Seed:         1,
				ZeroDivision: ZeroDivisionNaN,
			},
		},
		Runtime: RuntimeConfig{Enabled: true, QueueSize: 1},
		Output:  OutputConfig{Format: "text"},
	}
}

// Load reads path over Default() and validates the result. An empty path
// returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	for i := range cfg.Backends {
		cfg.Backends[i].fillDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fillDefaults completes a backend entry read from YAML, which replaces the
// default backend list wholesale.
func (b *Backend) fillDefaults() {
	if b.MinLeaf == 0 {
		b.MinLeaf = 1
	}
	if b.ZeroDivision == "" {
		b.ZeroDivision = ZeroDivisionZero
	}
	if b.Kind == KindCART {
		if b.Splitter == "" {
			b.Splitter = "best"
		}
		if b.Criterion == "" {
			b.Criterion = "gini"
		}
	}
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed '"+fe.Tag()+"' rule", fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	if c.Backends[0].Name == c.Backends[1].Name {
		return errors.NewValidationError("Config.Backends", "backend names must differ", c.Backends[0].Name)
	}
	if c.Output.Format != "text" && c.Output.CSVDir == "" {
		return errors.NewValidationError("Config.Output.CSVDir", "required when format includes csv", c.Output.CSVDir)
	}
	for _, b := range c.Backends {
		if b.Kind == KindRandomTree && !c.Runtime.Enabled {
			return errors.NewValidationError("Config.Runtime.Enabled", "randomtree backends run inside the runtime", false)
		}
	}
	return nil
}

// Marshal renders c as YAML, used to write a starter config.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
