// Package config loads aircraft performance profiles from YAML and
// holds the active profile behind an atomically-swappable registry.
//
// Grounded on the pack's gopkg.in/yaml.v3 configuration-loading idiom;
// the teacher itself carries no config-file layer, so this is adopted
// wholesale from the rest of the example pack rather than adapted
// from teacher code (see DESIGN.md).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/flightcore/copilot/internal/flightdata"
)

// Registry holds the set of known aircraft profiles and the currently
// active one, swappable atomically (spec §5: "replacing a profile
// resets affected subsystems atomically").
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]flightdata.Profile
	active   string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]flightdata.Profile)}
}

// LoadFromStorage reads every *.yaml/*.yml file in dir as an aircraft
// profile, validating each before admitting it. Split from
// ApplyRemoteState per DESIGN NOTES' resolution of the source's
// overloaded loadState method.
func (r *Registry) LoadFromStorage(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read profile directory %s: %w", dir, err)
	}

	loaded := make(map[string]flightdata.Profile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read profile %s: %w", path, err)
		}

		var profile flightdata.Profile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return fmt.Errorf("parse profile %s: %w", path, err)
		}
		if err := Validate(profile); err != nil {
			return fmt.Errorf("invalid profile %s: %w", path, err)
		}
		loaded[profile.ID] = profile
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = loaded
	if _, ok := r.profiles[r.active]; !ok {
		r.active = ""
	}
	return nil
}

// ProfileState is an in-memory profile override pushed by a
// ground-station API call, distinct from a disk-backed profile file.
type ProfileState struct {
	Profile flightdata.Profile
	Active  bool
}

// ApplyRemoteState admits a profile pushed directly (not read from
// disk) and optionally activates it.
func (r *Registry) ApplyRemoteState(state ProfileState) error {
	if err := Validate(state.Profile); err != nil {
		return fmt.Errorf("invalid remote profile: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[state.Profile.ID] = state.Profile
	if state.Active {
		r.active = state.Profile.ID
	}
	return nil
}

// SetActive switches the active profile by ID.
func (r *Registry) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return fmt.Errorf("unknown aircraft profile %q", id)
	}
	r.active = id
	return nil
}

// Active returns the currently active profile.
func (r *Registry) Active() (flightdata.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[r.active]
	return p, ok
}

// Get returns a profile by ID.
func (r *Registry) Get(id string) (flightdata.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// List returns every known profile ID.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	return ids
}

// Validate checks the profile's reference speeds are present (Vs1 > 0,
// so the ordered speeds after it are positive too) and monotonically
// ordered (spec §7: malformed profiles never reach the rule engine).
func Validate(p flightdata.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile missing id")
	}
	s := p.Speeds
	if s.Vs1 <= 0 {
		return fmt.Errorf("profile missing reference speeds (Vs1 must be > 0)")
	}
	ordered := []struct {
		name  string
		value float64
	}{
		{"Vs1", s.Vs1}, {"Vr", s.Vr}, {"Vy", s.Vy}, {"Vno", s.Vno}, {"Vne", s.Vne},
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].value < ordered[i-1].value {
			return fmt.Errorf("speed %s (%.1f) must be >= %s (%.1f)", ordered[i].name, ordered[i].value, ordered[i-1].name, ordered[i-1].value)
		}
	}
	if p.Weight.MaxGrossLb <= p.Weight.EmptyLb {
		return fmt.Errorf("max gross weight must exceed empty weight")
	}
	return nil
}
