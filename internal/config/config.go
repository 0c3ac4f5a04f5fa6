// Package config reads prism.toml, the per-project defaults of the prism
// command. Flags given on the command line override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"prism/internal/compiler"
	"prism/internal/trace"
)

// FileName is the name searched for by Find.
const FileName = "prism.toml"

// Config mirrors prism.toml.
type Config struct {
	Lower LowerConfig `toml:"lower"`
	Cache CacheConfig `toml:"cache"`
	Trace TraceConfig `toml:"trace"`
}

type LowerConfig struct {
	// Passes lists option names as accepted by compiler.ParseOptions.
	Passes []string `toml:"passes"`
	// Rotation selects the orientation source: "specconst" or "uniforms".
	Rotation       string `toml:"rotation"`
	PreRotation    bool   `toml:"pre_rotation"`
	Jobs           int    `toml:"jobs"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	ArenaLimit     int    `toml:"arena_limit"`
	// Output is the directory lowered documents are written to.
	Output string `toml:"output"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

// File is a loaded configuration and where it came from.
type File struct {
	Path   string
	Root   string
	Config Config
}

// Default is the configuration used without a prism.toml.
func Default() Config {
	return Config{
		Lower: LowerConfig{
			Passes:         []string{"pixel-local-storage", "flip-derivatives"},
			Rotation:       "specconst",
			MaxDiagnostics: 100,
		},
		Trace: TraceConfig{Level: "off", Format: "auto"},
	}
}

// Find walks up from startDir to locate prism.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest prism.toml. ok is false when there
// is none; the returned file then holds Default.
func Discover(startDir string) (*File, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &File{Config: Default()}, false, nil
	}
	f, err := Load(path)
	return f, true, err
}

// Load decodes the file at path over Default and validates it.
func Load(path string) (*File, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("lower") && !meta.IsDefined("lower", "passes") {
		return nil, fmt.Errorf("%s: missing [lower].passes", path)
	}
	if meta.IsDefined("cache", "dir") && strings.TrimSpace(cfg.Cache.Dir) == "" {
		return nil, fmt.Errorf("%s: [cache].dir is empty", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	root := filepath.Dir(path)
	if cfg.Lower.Output != "" && !filepath.IsAbs(cfg.Lower.Output) {
		cfg.Lower.Output = filepath.Join(root, filepath.FromSlash(cfg.Lower.Output))
	}
	if cfg.Cache.Dir != "" && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(root, filepath.FromSlash(cfg.Cache.Dir))
	}
	return &File{Path: path, Root: root, Config: cfg}, nil
}

// Validate checks values that decode fine but make no sense.
func (c *Config) Validate() error {
	if _, err := c.Options(); err != nil {
		return err
	}
	if c.Lower.Jobs < 0 {
		return fmt.Errorf("[lower].jobs must not be negative")
	}
	if c.Lower.MaxDiagnostics < 0 {
		return fmt.Errorf("[lower].max_diagnostics must not be negative")
	}
	if c.Lower.ArenaLimit < 0 {
		return fmt.Errorf("[lower].arena_limit must not be negative")
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	return nil
}

// Options folds [lower] into compiler options.
func (c *Config) Options() (compiler.Options, error) {
	opts, err := compiler.ParseOptions(strings.Join(c.Lower.Passes, ","))
	if err != nil {
		return 0, fmt.Errorf("[lower].passes: %w", err)
	}
	if c.Lower.PreRotation {
		opts |= compiler.OptPreRotation
	}
	switch c.Lower.Rotation {
	case "", "specconst":
	case "uniforms":
		opts |= compiler.OptRotationUniforms
	default:
		return 0, fmt.Errorf("[lower].rotation: unknown source %q (expected specconst|uniforms)", c.Lower.Rotation)
	}
	return opts, nil
}
