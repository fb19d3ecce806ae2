package lr

import (
	"fmt"

	"github.com/BurntSushi/toml"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// Training defaults
const (
	DefaultLearningRate = 0.1
	DefaultIterations   = 5
	NumWorkers          = 4 // For parallel per-sample work
)

// RunConfig holds the configuration for a training run. It is read from a
// TOML file; unset keys keep the values of DefaultRunConfig.
type RunConfig struct {
	DataPath    string `toml:"data_path"`
	TestPath    string `toml:"test_path"`
	LabelColumn int    `toml:"label_column"` // negative counts from the end
	Bias        bool   `toml:"bias"`

	Iterations   int     `toml:"iterations"`
	LearningRate float64 `toml:"learning_rate"`
	BatchSize    int     `toml:"batch_size"` // 0 uses every record each iteration
	Workers      int     `toml:"workers"`
	Reduction    string  `toml:"reduction"` // "sequential" | "tree"

	// HomomorphicForward computes w·x inside the scheme instead of from the
	// refreshed plaintext weights.
	HomomorphicForward bool `toml:"homomorphic_forward"`

	CheckpointPath string `toml:"checkpoint_path"`
	PlotPath       string `toml:"plot_path"`
	Debug          int    `toml:"debug"`

	HE leveled.Config `toml:"he"`
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		LabelColumn:  -1,
		Bias:         true,
		Iterations:   DefaultIterations,
		LearningRate: DefaultLearningRate,
		Workers:      NumWorkers,
		Reduction:    Sequential.String(),
		Debug:        1,
		HE:           leveled.DefaultConfig(),
	}
}

// LoadRunConfig decodes a TOML file over the defaults.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return RunConfig{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return RunConfig{}, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

func (c RunConfig) validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("no training data path")
	}
	if c.Iterations < 0 {
		return fmt.Errorf("negative iteration count %d", c.Iterations)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("negative batch size %d", c.BatchSize)
	}
	if _, err := ParseReduction(c.Reduction); err != nil {
		return err
	}
	return nil
}
