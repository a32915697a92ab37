package velcro

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings holds the per-world simulation options that may be tuned without
// recompiling. Tolerances such as LinearSlop stay constants.
type Settings struct {
	Gravity            Vec2 `yaml:"gravity"`
	VelocityIterations int  `yaml:"velocity_iterations"`
	PositionIterations int  `yaml:"position_iterations"`
	AllowSleep         bool `yaml:"allow_sleep"`
	WarmStarting       bool `yaml:"warm_starting"`
	ContinuousPhysics  bool `yaml:"continuous_physics"`
	SubStepping        bool `yaml:"sub_stepping"`

	// WorldBounds, when set, limits where bodies may go. Bodies leaving it
	// are dropped from the broad phase and reported to the BoundaryListener.
	WorldBounds *AABB `yaml:"world_bounds,omitempty"`
}

// DefaultSettings returns earth gravity, 8 velocity and 3 position
// iterations, with sleeping, warm starting and continuous physics enabled.
func DefaultSettings() Settings {
	return Settings{
		Gravity:            MakeVec2(0, -10),
		VelocityIterations: 8,
		PositionIterations: 3,
		AllowSleep:         true,
		WarmStarting:       true,
		ContinuousPhysics:  true,
	}
}

// Validate checks the settings for values the solver cannot work with.
func (s Settings) Validate() error {
	if s.VelocityIterations <= 0 {
		return errors.Wrapf(ErrInvalidSettings, "velocity_iterations must be positive, got %d", s.VelocityIterations)
	}
	if s.PositionIterations < 0 {
		return errors.Wrapf(ErrInvalidSettings, "position_iterations must not be negative, got %d", s.PositionIterations)
	}
	if !s.Gravity.IsValid() {
		return errors.Wrap(ErrInvalidSettings, "gravity is not finite")
	}
	if s.WorldBounds != nil && !s.WorldBounds.IsValid() {
		return errors.Wrap(ErrInvalidAABB, "world_bounds")
	}
	return nil
}

// ParseSettings decodes YAML on top of DefaultSettings, so absent keys keep
// their default value.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, errors.Wrap(err, "velcro: decode settings")
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// LoadSettings reads and parses a YAML settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettings(), errors.Wrapf(err, "velcro: read settings %s", path)
	}
	return ParseSettings(data)
}

// Marshal encodes the settings as YAML.
func (s Settings) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	return data, errors.Wrap(err, "velcro: encode settings")
}
