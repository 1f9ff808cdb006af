package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory, applies environment
// overrides and validates the result.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	return LoadFs(afero.NewBasePathFs(afero.NewOsFs(), path))
}

// LoadFs loads the configuration from the root of fsys.
func LoadFs(fsys afero.Fs) (*Configuration, error) {
	configContents, err := afero.ReadFile(fsys, ConfigurationName)
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigurationName, err)
	}
	out.configFs = fsys

	if err := out.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ConfigurationName, err)
	}
	return &out, nil
}

// Initialize writes the default configuration, a host key and the
// directories the shell needs into dir. Existing files are left alone.
func Initialize(dir string, logger *log.Logger) error {
	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// InitializeFs is Initialize over an arbitrary filesystem.
func InitializeFs(fsys afero.Fs, logger *log.Logger) error {
	for _, dir := range []string{LogsDirName, defaultConfig().StoreDir} {
		logger.Printf("Creating %s/", dir)
		if err := fsys.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	if err := writeIfMissing(fsys, logger, ConfigurationName, func() ([]byte, error) {
		return defaultConfigData, nil
	}); err != nil {
		return err
	}

	return writeIfMissing(fsys, logger, PrivateKeyName, generateHostKey)
}

func writeIfMissing(fsys afero.Fs, logger *log.Logger, name string, contents func() ([]byte, error)) error {
	_, err := fsys.Stat(name)
	switch {
	case err == nil:
		logger.Printf("Keeping existing %s", name)
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	data, err := contents()
	if err != nil {
		return err
	}
	logger.Printf("Writing %s", name)
	return afero.WriteFile(fsys, name, data, 0600)
}

func generateHostKey() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	block, err := ssh.MarshalPrivateKey(key, "startsh host key")
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(block), nil
}
