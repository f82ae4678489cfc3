package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName = "ddcbright"

	defaultStateDir  = "/tmp/backlight"
	defaultSysfsRoot = "/sys"
	defaultDevDir    = "/dev"
	defaultAddress   = 0x37
	defaultGetDelay  = 40 * time.Millisecond
	defaultSetDelay  = 50 * time.Millisecond
)

type Config struct {
	// StateDir receives one <output>.json snapshot per invocation.
	StateDir  string    `yaml:"state_dir"`
	SysfsRoot string    `yaml:"sysfs_root"`
	DevDir    string    `yaml:"dev_dir"`
	DDC       DDCConfig `yaml:"ddc"`
	// VerifyAfterSet re-reads the feature after a write instead of
	// reporting the value that was sent.
	VerifyAfterSet bool `yaml:"verify_after_set"`
}

type DDCConfig struct {
	Address  uint16        `yaml:"address"`
	GetDelay time.Duration `yaml:"get_delay"`
	SetDelay time.Duration `yaml:"set_delay"`
}

// DefaultPath is $XDG_CONFIG_HOME/ddcbright/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// Default returns a config with every default applied.
func Default() Config {
	var cfg Config
	_ = DefaultAndValidate(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, describeDecodeErr(err)
	}

	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, returning defaults when path does not exist.
func LoadOrDefault(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cfg.StateDir = strings.TrimSpace(cfg.StateDir)
	if cfg.StateDir == "" {
		cfg.StateDir = defaultStateDir
	}
	cfg.SysfsRoot = strings.TrimSpace(cfg.SysfsRoot)
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = defaultSysfsRoot
	}
	cfg.DevDir = strings.TrimSpace(cfg.DevDir)
	if cfg.DevDir == "" {
		cfg.DevDir = defaultDevDir
	}

	if cfg.DDC.Address == 0 {
		cfg.DDC.Address = defaultAddress
	}
	if cfg.DDC.Address > 0x7F {
		return fmt.Errorf("ddc.address must be a 7-bit i2c address")
	}
	if cfg.DDC.GetDelay < 0 {
		return fmt.Errorf("ddc.get_delay must be >= 0")
	}
	if cfg.DDC.GetDelay == 0 {
		cfg.DDC.GetDelay = defaultGetDelay
	}
	if cfg.DDC.SetDelay < 0 {
		return fmt.Errorf("ddc.set_delay must be >= 0")
	}
	if cfg.DDC.SetDelay == 0 {
		cfg.DDC.SetDelay = defaultSetDelay
	}
	return nil
}

var yamlLinePrefix = regexp.MustCompile(`^line \d+: `)

// describeDecodeErr flattens yaml.v3 unknown-field errors into one line.
func describeDecodeErr(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	unknown := make([]string, 0, len(te.Errors))
	for _, e := range te.Errors {
		msg := yamlLinePrefix.ReplaceAllString(e, "")
		if strings.Contains(msg, "not found in type") {
			unknown = append(unknown, msg)
		}
	}
	if len(unknown) == 0 || len(unknown) != len(te.Errors) {
		return err
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(unknown, "; "))
}
