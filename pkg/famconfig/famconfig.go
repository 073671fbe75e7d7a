// Package famconfig reads the optional famdb.yaml defaults file (or a
// path given with `-c`). It follows internal/config's
// struct-with-defaults-then-CLI-override shape, but returns errors
// instead of calling log.Fatal, and never reads a hardcoded filename;
// the caller decides whether a config file is expected at all.
package famconfig

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/famdb/famdb/internal/famerr"
)

// Config carries the defaults a famdb.yaml file can set. Every field
// here is also settable as a CLI flag; CLI flags always win.
type Config struct {
	Directory string `yaml:"directory"`
	LogLevel  string `yaml:"log_level"`
	Format    string `yaml:"format"`
}

// Defaults returns the built-in defaults applied before any file or
// flag is consulted.
func Defaults() Config {
	return Config{
		Directory: ".",
		LogLevel:  "info",
		Format:    "pretty",
	}
}

// Load reads path and overlays it onto Defaults(). A missing file is
// not an error (famdb.yaml is optional), but a malformed one is a
// UserError, since it means the operator's own configuration is wrong.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, famerr.IO("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, famerr.User("parse config %s: %w", path, err).WithHint("check famdb.yaml syntax")
	}
	return cfg, nil
}

// Override applies any non-empty CLI flag value on top of cfg, giving
// flags precedence over the file and the file precedence over built-in
// defaults.
func (c Config) Override(directory, logLevel, format string) Config {
	if directory != "" {
		c.Directory = directory
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if format != "" {
		c.Format = format
	}
	return c
}
