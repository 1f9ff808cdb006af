package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/startterm/startsh/core/vfs"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	LogsDirName       = "session_logs"
	PrivateKeyName    = "private_key"
	AppLogName        = "app.log"

	// EnvPrefix is prepended to the environment overrides, e.g.
	// STARTSH_SSH_PORT.
	EnvPrefix = "STARTSH"
)

type Configuration struct {
	configFs afero.Fs

	Hostname    string `json:"hostname" split_words:"true" validate:"required,hostname_rfc1123"`
	User        string `json:"user" split_words:"true" validate:"required"`
	Group       string `json:"group" split_words:"true" validate:"required"`
	Prompt      string `json:"prompt" split_words:"true"`
	Motd        string `json:"motd" split_words:"true"`
	Rows        int    `json:"rows" split_words:"true" validate:"gte=2"`
	Cols        int    `json:"cols" split_words:"true" validate:"gte=10"`
	HistorySize int    `json:"history_size" split_words:"true" validate:"gte=0"`

	BookmarksFile   string   `json:"bookmarks_file" split_words:"true" validate:"required"`
	StoreDir        string   `json:"store_dir" split_words:"true" validate:"required"`
	SandboxTimeout  Duration `json:"sandbox_timeout" split_words:"true" validate:"gt=0"`
	DefaultPackages []string `json:"default_packages" split_words:"true" validate:"unique"`

	SSHPort          int      `json:"ssh_port" split_words:"true" validate:"gte=0,lte=65535"`
	SSHBanner        string   `json:"ssh_banner" split_words:"true"`
	AllowAnyPassword bool     `json:"allow_any_password" split_words:"true"`
	Passwords        []string `json:"passwords" split_words:"true" validate:"unique"`
	OutputRate       int64    `json:"output_rate" split_words:"true" validate:"gte=0"`
	MetricsAddr      string   `json:"metrics_addr" split_words:"true"`

	LogLevel string `json:"log_level" split_words:"true" validate:"oneof=debug info warn error"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// ApplyEnv overrides fields with any STARTSH_* environment variables that
// are set.
func (c *Configuration) ApplyEnv() error {
	return envconfig.Process(EnvPrefix, c)
}

// Duration is a time.Duration written as a string like "5s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	return d.Decode(raw)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

func (c *Configuration) CreateSessionLog(name string) (afero.File, error) {
	toCreate := filepath.Join(LogsDirName, name)
	return c.fs().Create(toCreate)
}

func (c *Configuration) OpenSessionLog(name string) (afero.File, error) {
	return c.fs().Open(filepath.Join(LogsDirName, name))
}

// PrivateKeyPem returns the bytes of the private key.
func (c *Configuration) PrivateKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), PrivateKeyName)
}

// AppLogPath is where the JSON application log lives. Only meaningful for a
// configuration loaded from disk.
func (c *Configuration) AppLogPath() string {
	if base, ok := c.fs().(*afero.BasePathFs); ok {
		if p, err := base.RealPath(AppLogName); err == nil {
			return p
		}
	}
	return AppLogName
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_RDONLY, 0600)
}

// Store returns the key-value store under StoreDir.
func (c *Configuration) Store() vfs.KeyValueStore {
	return vfs.NewAferoStore(c.fs(), c.StoreDir)
}

// LoadBookmarks reads the bookmark snapshot. A missing snapshot yields the
// default tree.
func (c *Configuration) LoadBookmarks() (*vfs.MemoryProvider, error) {
	fd, err := c.fs().Open(c.BookmarksFile)
	if errors.Is(err, fs.ErrNotExist) {
		return vfs.NewMemoryProvider(), nil
	}
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return vfs.LoadSnapshot(fd)
}

// SaveBookmarks writes the bookmark snapshot, replacing the old one.
func (c *Configuration) SaveBookmarks(provider *vfs.MemoryProvider) error {
	fd, err := c.fs().Create(c.BookmarksFile)
	if err != nil {
		return err
	}
	if err := provider.SaveSnapshot(fd); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// DefaultConfig returns the built-in configuration backed by memory.
func DefaultConfig() *Configuration {
	out := defaultConfig()
	out.configFs = afero.NewMemMapFs()
	return out
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
