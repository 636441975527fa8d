package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "KGVIEW_CONFIG"
	// ConfigFileName is looked up in the working directory
	ConfigFileName = "kgview.yaml"
	// ConfigDirName is the directory under the user and system config roots
	ConfigDirName = "kgview"

	userConfigFile = "config.yaml"
)

// SearchPaths lists the config file candidates, highest priority first:
// $KGVIEW_CONFIG, ./kgview.yaml, the user config directories, then
// /etc/kgview/config.yaml.
func SearchPaths() []string {
	var paths []string
	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}

	local := ConfigFileName
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		local = abs
	}
	paths = append(paths, local)

	for _, dir := range userConfigDirs() {
		paths = append(paths, filepath.Join(dir, userConfigFile))
	}
	return append(paths, filepath.Join("/etc", ConfigDirName, userConfigFile))
}

// FindConfigPath returns the first existing file from SearchPaths, or ""
func FindConfigPath() string {
	for _, path := range SearchPaths() {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPath is where Save writes when given no path: the first user
// config directory, else the working directory.
func DefaultConfigPath() string {
	if dirs := userConfigDirs(); len(dirs) > 0 {
		return filepath.Join(dirs[0], userConfigFile)
	}
	return ConfigFileName
}

// userConfigDirs returns $XDG_CONFIG_HOME/kgview and ~/.config/kgview, in
// that order, skipping unset roots
func userConfigDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, ConfigDirName))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", ConfigDirName))
	}
	return dirs
}

// EnsureConfigDir creates the directory holding configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
