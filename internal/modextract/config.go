package modextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/willabides/modextract/internal/extract"
	"github.com/willabides/modextract/internal/install"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

const (
	BackendNative = "native"
	BackendTools  = "tools"
)

var backends = []string{BackendNative, BackendTools}

// Config is the contents of a modextract config file.
type Config struct {
	// The directory working directories and extracted modules are created in. Relative paths are relative to
	// the directory where the configuration file resides. Default is the current directory.
	WorkDir string `yaml:"work_dir,omitempty"`

	// Install root for MULTI_GAME_UI modules. Default is /games/.
	MGSRoot string `yaml:"mgs_root,omitempty"`

	// Install root for GAME modules. Default is the games directory under mgs_root.
	GamesRoot string `yaml:"games_root,omitempty"`

	// The 7z program used for disk images. Default is 7z.
	SevenZip string `yaml:"seven_zip,omitempty"`

	// The tar program used by the tools backend. Default is tar.
	Tar string `yaml:"tar,omitempty"`

	// How tarballs, zip and 7z archives are unpacked. Either native or tools. Default is native.
	ContainerBackend string `yaml:"container_backend,omitempty"`

	// Command run to install 7z when it is missing.
	InstallCommand []string `yaml:"install_command,omitempty"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// ConfigFromYAML parses a config. Unknown fields are an error.
func ConfigFromYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.WorkDir = filepath.FromSlash(cfg.WorkDir)
	cfg.MGSRoot = filepath.FromSlash(cfg.MGSRoot)
	cfg.GamesRoot = filepath.FromSlash(cfg.GamesRoot)
	err = cfg.validate()
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// NewConfig loads the config file at filename. An empty filename returns DefaultConfig().
func NewConfig(filename string) (*Config, error) {
	if filename == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg, err := ConfigFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", filename, err)
	}
	if !filepath.IsAbs(cfg.WorkDir) {
		cfg.WorkDir = filepath.Join(filepath.Dir(filename), cfg.WorkDir)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ContainerBackend != "" && !slices.Contains(backends, c.ContainerBackend) {
		return fmt.Errorf("unknown container_backend %q, must be one of %v", c.ContainerBackend, backends)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if c.GamesRoot == "" {
		if c.MGSRoot == "" {
			c.GamesRoot = install.DefaultGamesRoot
		} else {
			c.GamesRoot = filepath.Join(c.MGSRoot, "games")
		}
	}
	if c.MGSRoot == "" {
		c.MGSRoot = install.DefaultMGSRoot
	}
	if c.SevenZip == "" {
		c.SevenZip = "7z"
	}
	if c.Tar == "" {
		c.Tar = "tar"
	}
	if c.ContainerBackend == "" {
		c.ContainerBackend = BackendNative
	}
	if c.InstallCommand == nil {
		c.InstallCommand = append([]string(nil), extract.DefaultInstallCommand...)
	}
}

// SetRoots overrides the install roots. Empty values are ignored, and a new mgs root moves the games root
// with it unless gamesRoot is also given.
func (c *Config) SetRoots(mgsRoot, gamesRoot string) {
	if mgsRoot != "" {
		c.MGSRoot = mgsRoot
		if gamesRoot == "" {
			c.GamesRoot = filepath.Join(mgsRoot, "games")
		}
	}
	if gamesRoot != "" {
		c.GamesRoot = gamesRoot
	}
}

func (c *Config) containers() extract.ContainerUnpacker {
	if c.ContainerBackend == BackendTools {
		return extract.ToolUnpacker{
			SevenZip: extract.SevenZip{Program: c.SevenZip},
			Tar:      c.Tar,
		}
	}
	return extract.Native{}
}
