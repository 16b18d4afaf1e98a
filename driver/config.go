package driver

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	StrategyLockCoupling = "lock-coupling"
	StrategyLockFree     = "lock-free"

	MixUniform   = "uniform"
	MixReadHeavy = "read-heavy"

	FormatCSV  = "csv"
	FormatText = "text"
	FormatJSON = "json"
)

const schemaURL = "https://github.com/metailurini/lazylist/driver/config.schema.json"

//go:embed config.schema.json
var schemaJSON []byte

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("driver: invalid config")

// Config describes one workload run.
type Config struct {
	// Threads is the number of concurrent workers.
	Threads int `json:"threads"`
	// OpsPerThread is the number of operations each worker issues.
	OpsPerThread int `json:"opsPerThread"`
	// MaxItem bounds the items drawn by a worker: [1, MaxItem].
	MaxItem int `json:"maxItem"`
	// Strategy selects the set implementation.
	Strategy string `json:"strategy"`
	// Mix selects how operations are drawn.
	Mix string `json:"mix"`
	// Partitioned gives every worker a disjoint item range and checks the
	// results against a sequential model.
	Partitioned bool `json:"partitioned"`
	// Seed seeds the workers; zero picks a time based seed.
	Seed int64 `json:"seed"`
	// Format is the record output format.
	Format string `json:"format"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Threads:      4,
		OpsPerThread: 100,
		MaxItem:      10,
		Strategy:     StrategyLockCoupling,
		Mix:          MixUniform,
		Format:       FormatCSV,
	}
}

// Validate checks the values a JSON file cannot be trusted to have.
func (c Config) Validate() error {
	switch {
	case c.Threads < 1:
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalidConfig, c.Threads)
	case c.OpsPerThread < 0:
		return fmt.Errorf("%w: opsPerThread must not be negative, got %d", ErrInvalidConfig, c.OpsPerThread)
	case c.MaxItem < 1:
		return fmt.Errorf("%w: maxItem must be positive, got %d", ErrInvalidConfig, c.MaxItem)
	}
	switch c.Strategy {
	case StrategyLockCoupling, StrategyLockFree:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	switch c.Mix {
	case MixUniform, MixReadHeavy:
	default:
		return fmt.Errorf("%w: unknown mix %q", ErrInvalidConfig, c.Mix)
	}
	switch c.Format {
	case FormatCSV, FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
}

// ParseConfig validates data against the config schema and decodes it over
// DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	schema, err := compileSchema()
	if err != nil {
		return Config{}, fmt.Errorf("driver: compile config schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := schema.Validate(doc); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("driver: read config: %w", err)
	}
	return ParseConfig(data)
}
