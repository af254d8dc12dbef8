package config

import (
	"fmt"
	"os"
	"path/filepath"

	coretypes "github.com/projecteru2/core/types"

	"github.com/tidalwave-it/solidblue/utils"
)

// Scan is a named scan preset: a folder plus a filename filter.
type Scan struct {
	Label string `json:"label" mapstructure:"label"`
	Path  string `json:"path" mapstructure:"path"`
	// Filter is a regular expression matched case-insensitively against
	// file basenames. Empty means match everything.
	Filter string `json:"filter" mapstructure:"filter"`
}

// Config holds global SolidBlue configuration.
type Config struct {
	// AppDir is the application state directory; the catalog database and
	// the catalog lock live under AppDir/db.
	AppDir string `json:"app_dir" mapstructure:"app_dir"`
	// WorkingDir is the scratch area used to stage encrypted containers and
	// optical images. Cleaned before every CreateEncryptedBackup run.
	WorkingDir string `json:"working_dir" mapstructure:"working_dir"`
	// VolumesDir is where the OS mounts removable volumes.
	VolumesDir string `json:"volumes_dir" mapstructure:"volumes_dir"`
	// KeyFile is the key file for encrypted backup containers.
	KeyFile string `json:"key_file" mapstructure:"key_file"`
	// Scans are the named scan presets.
	Scans map[string]Scan `json:"scan" mapstructure:"scan"`
	// Log configuration, uses eru core's ServerLogConfig.
	Log coretypes.ServerLogConfig `json:"log" mapstructure:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		AppDir:     filepath.Join(home, ".solidblue"),
		WorkingDir: filepath.Join(os.TempDir(), "SolidBlue"),
		VolumesDir: "/Volumes",
		Log: coretypes.ServerLogConfig{
			Level:      "info",
			MaxSize:    500,
			MaxAge:     28,
			MaxBackups: 3,
		},
	}
}

// EnsureDirs creates the state directories and returns the config.
func EnsureDirs(conf *Config) (*Config, error) {
	if err := utils.EnsureDirs(conf.AppDir, conf.DatabaseDir(), conf.EncryptedMountDir()); err != nil {
		return nil, err
	}
	return conf, nil
}

// DatabaseDir returns the directory housing the catalog database.
func (c *Config) DatabaseDir() string {
	return filepath.Join(c.AppDir, "db")
}

// DatabaseFile returns the catalog database path.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DatabaseDir(), "fingerprints.db")
}

// EncryptedMountDir is where encrypted backup containers get mounted while a
// register or verify workflow inspects them.
func (c *Config) EncryptedMountDir() string {
	return filepath.Join(c.AppDir, "var", "EncryptedBackups")
}

// ScanPreset resolves a named scan preset.
func (c *Config) ScanPreset(name string) (Scan, error) {
	scan, ok := c.Scans[name]
	if !ok {
		return Scan{}, fmt.Errorf("unknown scan preset %q", name)
	}
	return scan, nil
}
