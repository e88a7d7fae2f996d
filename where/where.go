// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/projector-cli/projector/constant"
	"github.com/projector-cli/projector/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "PROJECTOR_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory.
// The PROJECTOR_CONFIG_PATH environment variable takes precedence over the platform default.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.Projector))
}

// Cache resolves the persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.Projector))
}

// Logs resolves the directory holding daily log files.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Capabilities resolves the file persisting engine capability probes.
func Capabilities() string {
	return filepath.Join(Cache(), "capabilities.json")
}

// Temp resolves the directory for transient artifacts such as key binding files and IPC sockets.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.Projector))
}

// History resolves the file holding saved playback positions.
func History() string {
	return filepath.Join(Cache(), "history.json")
}

// Queries resolves the file ranking previously played references.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}
