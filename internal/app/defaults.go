package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the locations fscope uses when nothing else is configured.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults resolves the default locations from the environment.
//
// The config file is the first of:
//   - $FSCOPE_CONFIG_PATH
//   - $XDG_CONFIG_HOME/fscope.toml
//   - ~/.config/fscope.toml
//
// The base directory for fscope data is the first of:
//   - $FSCOPE_HOME
//   - $XDG_DATA_HOME/fscope
//   - ~/.local/share/fscope
func GetDefaults() (Defaults, error) {
	configPath, err := lookupPath("FSCOPE_CONFIG_PATH", "XDG_CONFIG_HOME", "fscope.toml", ".config")
	if err != nil {
		return Defaults{}, err
	}

	baseDir, err := lookupPath("FSCOPE_HOME", "XDG_DATA_HOME", "fscope", ".local", "share")
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// lookupPath returns $override if set, else $xdgVar/name, else
// ~/<homeDirs...>/name.
func lookupPath(override, xdgVar, name string, homeDirs ...string) (string, error) {
	if path := os.Getenv(override); path != "" {
		return path, nil
	}
	if dir := os.Getenv(xdgVar); dir != "" && filepath.IsAbs(dir) {
		return filepath.Join(dir, name), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append(append([]string{homeDir}, homeDirs...), name)...), nil
}
