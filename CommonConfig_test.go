package velcro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestParseSettingsKeepsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte(`
gravity: {x: 0, y: -9.81}
velocity_iterations: 10
sub_stepping: true
`))
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultSettings()
	want.Gravity = MakeVec2(0, -9.81)
	want.VelocityIterations = 10
	want.SubStepping = true

	if s.Gravity != want.Gravity ||
		s.VelocityIterations != want.VelocityIterations ||
		s.PositionIterations != want.PositionIterations ||
		s.AllowSleep != want.AllowSleep ||
		s.WarmStarting != want.WarmStarting ||
		s.ContinuousPhysics != want.ContinuousPhysics ||
		s.SubStepping != want.SubStepping ||
		s.WorldBounds != nil {
		t.Fatalf("got %+v, want %+v", s, want)
	}
}

func TestParseSettingsWorldBounds(t *testing.T) {
	s, err := ParseSettings([]byte(`
world_bounds:
  lower: {x: -100, y: -100}
  upper: {x: 100, y: 100}
`))
	if err != nil {
		t.Fatal(err)
	}
	if s.WorldBounds == nil || s.WorldBounds.UpperBound != MakeVec2(100, 100) {
		t.Fatalf("bounds %+v", s.WorldBounds)
	}
}

func TestParseSettingsRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"zero velocity iterations", "velocity_iterations: 0", ErrInvalidSettings},
		{"negative position iterations", "position_iterations: -1", ErrInvalidSettings},
		{"inverted bounds", "world_bounds: {lower: {x: 1, y: 1}, upper: {x: 0, y: 0}}", ErrInvalidAABB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := ParseSettings([]byte("gravity: [")); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestLoadSettingsRoundTrip(t *testing.T) {
	s := DefaultSettings()
	s.AllowSleep = false
	s.PositionIterations = 5

	data, err := s.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "world.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AllowSleep || loaded.PositionIterations != 5 {
		t.Fatalf("loaded %+v", loaded)
	}

	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestNewWorldFromSettings(t *testing.T) {
	s := DefaultSettings()
	s.VelocityIterations = 0
	if _, err := NewWorldFromSettings(s); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("got %v", err)
	}

	w, err := NewWorldFromSettings(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if w.Gravity() != MakeVec2(0, -10) || w.Phase() != PhaseIdle {
		t.Fatalf("world gravity %v phase %v", w.Gravity(), w.Phase())
	}
}
