package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// ExampleConfigPath is the path to the example planner configuration
// shipped with the repository.
const ExampleConfigPath = "config/viewplan.example.json"

// Engine selectors.
const (
	EngineLocal = "local"
)

// Edge solver types.
const (
	EdgeDubinsCar        = "dubins_car"
	EdgeVanaAirplane     = "vana_airplane"
	EdgeModifiedAirplane = "modified_airplane"
	EdgeHeuristic        = "heuristic"
)

// Edge modifications.
const (
	ModificationNone        = "none"
	ModificationDwell       = "dwell"
	ModificationLeadInDwell = "lead_in_dwell"
)

// Weight formats understood by the GTSP engine.
const (
	FormatFullMatrix = "FULL_MATRIX"
	FormatUpperRow   = "UPPER_ROW"
)

// Heading strategies used by the heuristic edge solver.
var headingStrategies = map[string]bool{
	"alternating":          true,
	"angle_bisector":       true,
	"alternating_bisector": true,
}

// PlannerConfig represents the root configuration of a planning run.
// Top-level fields are pointers so omitted values fall back to the Get*
// defaults.
type PlannerConfig struct {
	// Engine is either "local" or the path to a GLKH-compatible binary.
	Engine       *string `json:"engine,omitempty"`
	Timeout      *string `json:"timeout,omitempty"` // duration string like "10m"
	ScratchDir   *string `json:"scratch_dir,omitempty"`
	Workers      *int    `json:"workers,omitempty"`
	CacheSize    *int    `json:"cache_size,omitempty"`
	WeightFormat *string `json:"weight_format,omitempty"`

	Experiments []ExperimentConfig `json:"experiments"`
}

// ExperimentConfig describes one planning problem.
type ExperimentConfig struct {
	Name     string         `json:"name"`
	Dim      int            `json:"dim"`
	Radius   float64        `json:"radius"`
	PitchMin float64        `json:"pitch_min,omitempty"`
	PitchMax float64        `json:"pitch_max,omitempty"`
	Edge     EdgeStrategy   `json:"edge"`
	Sampling SamplingConfig `json:"sampling"`
	Regions  []RegionConfig `json:"regions"`
}

// EdgeStrategy selects the edge solver stack.
type EdgeStrategy struct {
	Type         string  `json:"type"`
	Modification string  `json:"modification,omitempty"`
	Dwell        float64 `json:"dwell,omitempty"`
	Lead         float64 `json:"lead,omitempty"`
	Multiply     bool    `json:"multiply,omitempty"`
	Headings     string  `json:"headings,omitempty"`
}

// SamplingConfig controls how many orientations are generated per point.
// Ranges are [min, max) in radians.
type SamplingConfig struct {
	NumHeadings int     `json:"num_headings"`
	HeadingMin  float64 `json:"heading_min,omitempty"`
	HeadingMax  float64 `json:"heading_max,omitempty"`
	NumPitches  int     `json:"num_pitches,omitempty"`
	PitchMin    float64 `json:"pitch_min,omitempty"`
	PitchMax    float64 `json:"pitch_max,omitempty"`
}

// RegionConfig is one visibility volume given by its reference points.
type RegionConfig struct {
	ID     int          `json:"id"`
	Points [][3]float64 `json:"points"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// EmptyPlannerConfig returns a PlannerConfig with all fields unset.
func EmptyPlannerConfig() *PlannerConfig {
	return &PlannerConfig{}
}

// LoadPlannerConfig loads a PlannerConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadPlannerConfig(path string) (*PlannerConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPlannerConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *PlannerConfig) Validate() error {
	if c.Engine != nil && *c.Engine == "" {
		return fmt.Errorf("engine must not be empty")
	}

	if c.Timeout != nil && *c.Timeout != "" {
		d, err := time.ParseDuration(*c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout '%s': %w", *c.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.CacheSize != nil && *c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", *c.CacheSize)
	}

	if c.WeightFormat != nil {
		switch *c.WeightFormat {
		case FormatFullMatrix, FormatUpperRow:
		default:
			return fmt.Errorf("unknown weight_format %q", *c.WeightFormat)
		}
	}

	for i := range c.Experiments {
		if err := c.Experiments[i].Validate(); err != nil {
			return fmt.Errorf("experiment %d (%s): %w", i, c.Experiments[i].Name, err)
		}
	}
	return nil
}

// Validate checks a single experiment.
func (e *ExperimentConfig) Validate() error {
	if e.Dim != 2 && e.Dim != 3 {
		return fmt.Errorf("dim must be 2 or 3, got %d", e.Dim)
	}
	if !(e.Radius > 0) || math.IsInf(e.Radius, 1) {
		return fmt.Errorf("radius must be a positive number, got %f", e.Radius)
	}
	if e.Dim == 3 {
		if !(e.PitchMin < 0 && e.PitchMin > -math.Pi/2) {
			return fmt.Errorf("pitch_min must be in (-π/2, 0), got %f", e.PitchMin)
		}
		if !(e.PitchMax > 0 && e.PitchMax < math.Pi/2) {
			return fmt.Errorf("pitch_max must be in (0, π/2), got %f", e.PitchMax)
		}
	}
	if err := e.Edge.validate(e.Dim); err != nil {
		return err
	}
	if e.Sampling.NumHeadings <= 0 {
		return fmt.Errorf("sampling.num_headings must be positive, got %d", e.Sampling.NumHeadings)
	}
	if e.Sampling.NumPitches < 0 {
		return fmt.Errorf("sampling.num_pitches must be non-negative, got %d", e.Sampling.NumPitches)
	}
	if len(e.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	seen := make(map[int]bool, len(e.Regions))
	for _, r := range e.Regions {
		if seen[r.ID] {
			return fmt.Errorf("duplicate region id %d", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

func (s EdgeStrategy) validate(dim int) error {
	switch s.Type {
	case EdgeDubinsCar:
		if dim != 2 {
			return fmt.Errorf("edge type %s needs dim 2", s.Type)
		}
	case EdgeVanaAirplane, EdgeModifiedAirplane:
		if dim != 3 {
			return fmt.Errorf("edge type %s needs dim 3", s.Type)
		}
	case EdgeHeuristic:
		if dim != 3 {
			return fmt.Errorf("edge type %s needs dim 3", s.Type)
		}
		if s.Headings != "" && !headingStrategies[s.Headings] {
			return fmt.Errorf("unknown heading strategy %q", s.Headings)
		}
	default:
		return fmt.Errorf("unknown edge type %q", s.Type)
	}

	switch s.Modification {
	case "", ModificationNone, ModificationDwell, ModificationLeadInDwell:
	default:
		return fmt.Errorf("unknown edge modification %q", s.Modification)
	}
	if s.Dwell < 0 || s.Lead < 0 {
		return fmt.Errorf("dwell and lead must be non-negative")
	}
	return nil
}

// GetHeadings returns the heading strategy name or the default.
func (s EdgeStrategy) GetHeadings() string {
	if s.Headings == "" {
		return "alternating_bisector"
	}
	return s.Headings
}

// GetEngine returns the engine value or the default.
func (c *PlannerConfig) GetEngine() string {
	if c.Engine == nil {
		return EngineLocal
	}
	return *c.Engine
}

// GetTimeout parses and returns the Timeout as a time.Duration.
func (c *PlannerConfig) GetTimeout() time.Duration {
	if c.Timeout == nil || *c.Timeout == "" {
		return 10 * time.Minute // default
	}
	d, err := time.ParseDuration(*c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Minute // default on parse error
	}
	return d
}

// GetScratchDir returns the scratch_dir value or a directory under the
// system temp dir.
func (c *PlannerConfig) GetScratchDir() string {
	if c.ScratchDir == nil || *c.ScratchDir == "" {
		return filepath.Join(os.TempDir(), "viewplan")
	}
	return *c.ScratchDir
}

// GetWorkers returns the workers value, or the number of CPUs when unset
// or zero.
func (c *PlannerConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetCacheSize returns the cache_size value or the default.
func (c *PlannerConfig) GetCacheSize() int {
	if c.CacheSize == nil {
		return 1 << 16
	}
	return *c.CacheSize
}

// GetWeightFormat returns the weight_format value or the default.
func (c *PlannerConfig) GetWeightFormat() string {
	if c.WeightFormat == nil {
		return FormatFullMatrix
	}
	return *c.WeightFormat
}
