package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name string
		env  map[string]string
		want Defaults
	}{
		{
			name: "explicit overrides",
			env: map[string]string{
				"FSCOPE_CONFIG_PATH": "/custom/config.toml",
				"FSCOPE_HOME":        "/custom/fscope",
				"XDG_CONFIG_HOME":    "/xdg/config",
				"XDG_DATA_HOME":      "/xdg/data",
			},
			want: Defaults{
				ConfigPath: "/custom/config.toml",
				BaseDir:    "/custom/fscope",
				LogDir:     "/custom/fscope/log",
			},
		},
		{
			name: "xdg directories",
			env: map[string]string{
				"XDG_CONFIG_HOME": "/xdg/config",
				"XDG_DATA_HOME":   "/xdg/data",
			},
			want: Defaults{
				ConfigPath: "/xdg/config/fscope.toml",
				BaseDir:    "/xdg/data/fscope",
				LogDir:     "/xdg/data/fscope/log",
			},
		},
		{
			name: "relative xdg directories are ignored",
			env: map[string]string{
				"XDG_CONFIG_HOME": "relative/config",
				"XDG_DATA_HOME":   "relative/data",
			},
			want: Defaults{
				ConfigPath: filepath.Join(home, ".config", "fscope.toml"),
				BaseDir:    filepath.Join(home, ".local", "share", "fscope"),
				LogDir:     filepath.Join(home, ".local", "share", "fscope", "log"),
			},
		},
		{
			name: "home directory fallback",
			want: Defaults{
				ConfigPath: filepath.Join(home, ".config", "fscope.toml"),
				BaseDir:    filepath.Join(home, ".local", "share", "fscope"),
				LogDir:     filepath.Join(home, ".local", "share", "fscope", "log"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"FSCOPE_CONFIG_PATH", "FSCOPE_HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME"} {
				t.Setenv(key, tt.env[key])
			}

			got, err := GetDefaults()
			if err != nil {
				t.Fatalf("GetDefaults() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GetDefaults() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
