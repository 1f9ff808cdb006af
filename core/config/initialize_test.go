package config

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestInitialize(t *testing.T) {
	tempDir := t.TempDir()
	if err := Initialize(tempDir, log.New(io.Discard, "", 0)); err != nil {
		t.Fatal(err)
	}

	// Check that the config is valid
	cfg, err := Load(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("CreateSessionLog", func(t *testing.T) {
		fd, err := cfg.CreateSessionLog("guest.cast")
		assert.Nil(t, err)
		fd.Close()

		fd, err = cfg.OpenSessionLog("guest.cast")
		assert.Nil(t, err)
		fd.Close()
	})

	t.Run("OpenAppLog", func(t *testing.T) {
		fd, err := cfg.OpenAppLog()
		assert.Nil(t, err)
		fd.Close()

		assert.Equal(t, filepath.Join(tempDir, AppLogName), cfg.AppLogPath())
		_, err = os.Stat(cfg.AppLogPath())
		assert.Nil(t, err)
	})

	t.Run("PrivateKeyPem", func(t *testing.T) {
		keyPem, err := cfg.PrivateKeyPem()
		assert.Nil(t, err)
		_, err = ssh.ParsePrivateKey(keyPem)
		assert.Nil(t, err)
	})

	t.Run("LoadConfigFile", func(t *testing.T) {
		_, err := Load(filepath.Join(tempDir, ConfigurationName))
		assert.Nil(t, err)
	})
}

func TestInitialize_KeepsExisting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, ConfigurationName, []byte("hostname: keep\n"), 0600))

	var out bytes.Buffer
	require.NoError(t, InitializeFs(fsys, log.New(&out, "", 0)))

	data, err := afero.ReadFile(fsys, ConfigurationName)
	require.NoError(t, err)
	assert.Equal(t, "hostname: keep\n", string(data))
	assert.Contains(t, out.String(), "Keeping existing config.yaml")
	assert.Contains(t, out.String(), "Writing private_key")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFs_Invalid(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, ConfigurationName, []byte("unknown_field: 1\n"), 0600))
	_, err := LoadFs(fsys)
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fsys, ConfigurationName, []byte("hostname: a\n"), 0600))
	_, err = LoadFs(fsys)
	assert.Error(t, err, "missing required fields")
}
