package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FileName is the options file stored under the base directory.
const FileName = "options.json"

// Panel sides.
const (
	SideLeft  = "left"
	SideRight = "right"
)

// Options holds the panel configuration shared by every engine.
type Options struct {
	// PanelSide is where the navigation panel docks: "left" or "right"
	PanelSide string `json:"panelSide"`

	// AutoOpenThreshold opens the panel when a rebuild yields at least this many entries
	AutoOpenThreshold int `json:"autoOpenThreshold"`

	// HighlightColor is the CSS color used for the transient scroll highlight
	HighlightColor string `json:"highlightColor"`
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		PanelSide:         SideRight,
		AutoOpenThreshold: 12,
		HighlightColor:    "#ffec8b",
	}
}

// colorPattern accepts hex colors, functional notations and named colors.
var colorPattern = regexp.MustCompile(`^(#([0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|(rgb|rgba|hsl|hsla)\([0-9a-zA-Z.,%\s/+-]*\)|[a-zA-Z]+)$`)

// Pool holds connection pool limits for the snapshot cache.
// Zero leaves the driver default.
type Pool struct {
	MaxOpenConns int
	MaxIdleConns int
}

// PoolFromEnv reads CHATTOC_DB_MAX_OPEN and CHATTOC_DB_MAX_IDLE.
// Missing, malformed or negative values are treated as unset.
func PoolFromEnv() Pool {
	return Pool{
		MaxOpenConns: envInt("CHATTOC_DB_MAX_OPEN"),
		MaxIdleConns: envInt("CHATTOC_DB_MAX_IDLE"),
	}
}

func envInt(name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// BaseDir returns the directory holding chattoc state.
// CHATTOC_HOME overrides the default of ~/.chattoc.
func BaseDir() (string, error) {
	if dir := os.Getenv("CHATTOC_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chattoc"), nil
}

// Load loads options from baseDir/options.json merged over the defaults.
// A missing file yields the defaults.
func Load(baseDir string) (*Options, error) {
	return loadFile(filepath.Join(baseDir, FileName))
}

// LoadWithRepo loads options from the global directory and from the nearest
// .chattoc/options.json found walking upward from startDir.
// Repo values take precedence; either file may be missing.
func LoadWithRepo(globalDir, startDir string) (*Options, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultOptions(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .chattoc/options.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".chattoc", FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Save writes the options to baseDir/options.json.
func Save(baseDir string, opts *Options) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(baseDir, FileName), append(data, '\n'), 0600)
}

// loadFileRaw loads options from a specific file path without applying defaults.
// A missing path yields zero-valued options.
func loadFileRaw(configPath string) (*Options, error) {
	if configPath == "" {
		return &Options{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Options{}, nil
		}
		return nil, err
	}
	return Parse(data)
}

func loadFile(configPath string) (*Options, error) {
	opts, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultOptions(), opts), nil
}

// Parse decodes a partial options object. Fields that are missing or fail
// validation are left zero so Merge falls back to the base value.
// Only input that is not a JSON object is an error.
func Parse(data []byte) (*Options, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("options must be a JSON object: %w", err)
	}

	opts := &Options{}
	if v, ok := raw["panelSide"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			opts.PanelSide = s
		}
	}
	if v, ok := raw["autoOpenThreshold"]; ok {
		opts.AutoOpenThreshold = parseThreshold(v)
	}
	if v, ok := raw["highlightColor"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			opts.HighlightColor = s
		}
	}
	return opts, nil
}

// parseThreshold accepts a JSON number or a numeric string, like a form field would send.
func parseThreshold(v json.RawMessage) int {
	var n int
	if json.Unmarshal(v, &n) == nil {
		return n
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

// Merge combines base and overlay options.
// Each overlay field wins only when it is valid; otherwise the base value is kept.
// Merge never fails, and a nil argument is treated as empty.
func Merge(base, overlay *Options) *Options {
	if base == nil {
		base = DefaultOptions()
	}
	if overlay == nil {
		overlay = &Options{}
	}
	result := *base

	if side := strings.ToLower(strings.TrimSpace(overlay.PanelSide)); ValidSide(side) {
		result.PanelSide = side
	}
	if overlay.AutoOpenThreshold > 0 {
		result.AutoOpenThreshold = overlay.AutoOpenThreshold
	}
	if color := strings.TrimSpace(overlay.HighlightColor); ValidColor(color) {
		result.HighlightColor = color
	}

	return &result
}

// ValidSide reports whether side is a known panel side.
func ValidSide(side string) bool {
	return side == SideLeft || side == SideRight
}

// ValidColor reports whether color looks like a CSS color value.
func ValidColor(color string) bool {
	return color != "" && colorPattern.MatchString(color)
}
