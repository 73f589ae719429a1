package credentials

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrProfileNotFound is returned when a profile doesn't exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNoDefaultProfile is returned when no default is set.
	ErrNoDefaultProfile = errors.New("no default profile set")
)

// Profile is a saved session token for a statuspage server.
type Profile struct {
	Name        string    `json:"name"`
	ServerURL   string    `json:"server_url"`
	Token       string    `json:"token"`
	Fingerprint string    `json:"fingerprint"`
	Email       string    `json:"email,omitempty"`
	OrgID       string    `json:"org_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Config represents the credentials configuration file.
type Config struct {
	Version        int                `json:"version"`
	DefaultProfile string             `json:"default_profile,omitempty"`
	Profiles       map[string]Profile `json:"profiles"`
}

// Store manages profiles on the local filesystem.
type Store struct {
	baseDir string
}

// NewStore creates a new profile store.
// If baseDir is empty, uses ~/.statuspage/credentials/
func NewStore(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".statuspage", "credentials")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	store := &Store{baseDir: baseDir}

	if err := store.ensureConfig(); err != nil {
		return nil, err
	}

	log.Debug().Str("baseDir", baseDir).Msg("credential store initialized")

	return store, nil
}

// Fingerprint identifies a token without revealing it: the base58 encoded
// SHA256 of the token, shortened for display.
func Fingerprint(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base58.Encode(hash[:])[:12]
}

// Save creates or replaces a profile. The first saved profile becomes the default.
func (s *Store) Save(p Profile) (*Profile, error) {
	if p.Name == "" || p.Token == "" || p.ServerURL == "" {
		return nil, errors.New("profile name, server URL and token are required")
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.Fingerprint = Fingerprint(p.Token)
	p.UpdatedAt = now
	if existing, ok := cfg.Profiles[p.Name]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}

	cfg.Profiles[p.Name] = p
	if len(cfg.Profiles) == 1 {
		cfg.DefaultProfile = p.Name
	}

	if err := s.saveConfig(cfg); err != nil {
		return nil, err
	}

	log.Info().
		Str("name", p.Name).
		Str("fingerprint", p.Fingerprint).
		Msg("profile saved")

	return &p, nil
}

// Get retrieves a profile by name.
func (s *Store) Get(name string) (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	p, ok := cfg.Profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}

	return &p, nil
}

// GetDefault retrieves the default profile.
// Returns ErrNoDefaultProfile if none is set.
func (s *Store) GetDefault() (*Profile, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.DefaultProfile == "" {
		return nil, ErrNoDefaultProfile
	}

	return s.Get(cfg.DefaultProfile)
}

// Delete removes a profile, clearing the default if it pointed at it.
func (s *Store) Delete(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Profiles[name]; !ok {
		return ErrProfileNotFound
	}

	delete(cfg.Profiles, name)
	if cfg.DefaultProfile == name {
		cfg.DefaultProfile = ""
	}

	if err := s.saveConfig(cfg); err != nil {
		return err
	}

	log.Info().Str("name", name).Msg("profile deleted")

	return nil
}

// SetDefault sets the default profile.
func (s *Store) SetDefault(name string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	if _, ok := cfg.Profiles[name]; !ok {
		return ErrProfileNotFound
	}

	cfg.DefaultProfile = name

	return s.saveConfig(cfg)
}

func (s *Store) ensureConfig() error {
	configPath := filepath.Join(s.baseDir, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	return s.saveConfig(&Config{
		Version:  1,
		Profiles: make(map[string]Profile),
	})
}

func (s *Store) loadConfig() (*Config, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	return &cfg, nil
}

// saveConfig writes the config file atomically. Tokens are secrets, so the file is 0600.
func (s *Store) saveConfig(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(s.baseDir, "config.json")
	tempPath := configPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
