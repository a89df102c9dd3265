// internal/store/store.go
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/intakefill/api/schemas"
	"github.com/xkilldash9x/intakefill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoProfile is returned when no record has been saved yet.
var ErrNoProfile = errors.New("no saved profile")

const (
	defaultDirName  = ".intakefill"
	defaultFileName = "profile.json"
	fileMode        = 0o600
	dirMode         = 0o700
)

// Store persists a single client record on the local filesystem, so a user
// does not have to re-enter their details between sessions. Nothing is ever
// written that the user did not explicitly save.
type Store struct {
	path   string
	logger *zap.Logger
}

// New resolves the profile path, defaulting to ~/.intakefill/profile.json.
func New(cfg config.StoreConfig, logger *zap.Logger) (*Store, error) {
	path := cfg.Path
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, defaultDirName, defaultFileName)
	} else {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand store path %q: %w", path, err)
		}
		path = expanded
	}
	return &Store{path: path, logger: logger.Named("store")}, nil
}

// Path returns the resolved profile location.
func (s *Store) Path() string { return s.path }

// Save writes the record atomically: tempfile in the same directory, then
// rename over the target.
func (s *Store) Save(record schemas.ClientRecord) error {
	record = record.Normalize()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, defaultFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp profile: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set profile permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush profile: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}

	s.logger.Info("Profile saved.", zap.String("path", s.path))
	return nil
}

// Load reads the saved record. A missing file is ErrNoProfile.
func (s *Store) Load() (schemas.ClientRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return schemas.ClientRecord{}, ErrNoProfile
		}
		return schemas.ClientRecord{}, fmt.Errorf("failed to read profile: %w", err)
	}

	var record schemas.ClientRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return schemas.ClientRecord{}, fmt.Errorf("failed to decode profile at %s: %w", s.path, err)
	}
	return record.Normalize(), nil
}

// Delete removes the saved profile. Deleting a profile that does not exist
// is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
