package profiles

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Store defines the interface for profile persistence.
type Store interface {
	// Load loads the profiles from storage
	Load() error

	// Save saves the profiles to storage
	Save() error

	// Add adds a new profile
	Add(profile Profile) error

	// Update updates an existing profile
	Update(name string, profile Profile) error

	// Remove removes a profile by name
	Remove(name string) error

	// Get retrieves a profile by name
	Get(name string) (Profile, bool)

	// All returns all profiles
	All() map[string]Profile
}

// config represents the complete profiles file for TOML marshaling.
type config struct {
	Version  int                `toml:"version" json:"version"`
	Profiles map[string]Profile `toml:"profiles" json:"profiles"`
}

// tomlStore implements Store using TOML file storage.
type tomlStore struct {
	configPath string
	config     *config
}

// NewTOML creates a new TOML-based store.
func NewTOML(configPath string) Store {
	if configPath == "" {
		configPath = "profiles.toml"
	}

	return &tomlStore{
		configPath: configPath,
		config: &config{
			Version:  1,
			Profiles: make(map[string]Profile),
		},
	}
}

// Load loads the profiles from file.
func (s *tomlStore) Load() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		// File doesn't exist, use empty config
		return nil
	}

	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read profiles: %w", err)
	}

	if unmarshalErr := toml.Unmarshal(data, s.config); unmarshalErr != nil {
		return fmt.Errorf("failed to parse profiles: %w", unmarshalErr)
	}

	if s.config.Profiles == nil {
		s.config.Profiles = make(map[string]Profile)
	}
	if s.config.Version == 0 {
		s.config.Version = 1
	}

	return nil
}

// Save saves the profiles to file.
func (s *tomlStore) Save() error {
	dir := filepath.Dir(s.configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profiles directory: %w", err)
	}

	data, err := toml.Marshal(s.config)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	if writeErr := os.WriteFile(s.configPath, data, 0o644); writeErr != nil {
		return fmt.Errorf("failed to write profiles: %w", writeErr)
	}

	return nil
}

// Add adds a new profile after validation.
func (s *tomlStore) Add(profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if _, exists := s.config.Profiles[profile.Name]; exists {
		return fmt.Errorf("profile %q already exists", profile.Name)
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.config.Profiles[profile.Name] = profile
	return s.Save()
}

// Update replaces an existing profile.
func (s *tomlStore) Update(name string, profile Profile) error {
	existing, exists := s.config.Profiles[name]
	if !exists {
		return fmt.Errorf("profile %q does not exist", name)
	}
	profile.Name = name
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.CreatedAt = existing.CreatedAt
	profile.UpdatedAt = time.Now().UTC()
	s.config.Profiles[name] = profile
	return s.Save()
}

// Remove removes a profile by name.
func (s *tomlStore) Remove(name string) error {
	if _, exists := s.config.Profiles[name]; !exists {
		return fmt.Errorf("profile %q does not exist", name)
	}
	delete(s.config.Profiles, name)
	return s.Save()
}

// Get retrieves a profile by name.
func (s *tomlStore) Get(name string) (Profile, bool) {
	profile, exists := s.config.Profiles[name]
	return profile, exists
}

// All returns all profiles.
func (s *tomlStore) All() map[string]Profile {
	return s.config.Profiles
}
