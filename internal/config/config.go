package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sdfterm/raymarch/internal/scene"
)

const (
	// DefaultSize is the fallback screen height; the width is twice as many columns.
	DefaultSize = 10
	// DefaultColumns is used when the terminal reports no width or "small" is requested.
	DefaultColumns = DefaultSize * 2
	// DefaultLines is used when the terminal reports no height or "small" is requested.
	DefaultLines = DefaultSize

	// DefaultLogLevel keeps the per-frame timing lines enabled.
	DefaultLogLevel = "debug"
	// DefaultLogPath is the append-only diagnostic log.
	DefaultLogPath = "sdf.out"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures every startup input of the renderer.
type Config struct {
	Scene     scene.Kind
	Rotate    bool
	Side      bool
	Small     bool
	Headless  bool
	Orbit     bool
	Overlay   bool
	MaxFrames int

	Logging LoggingConfig

	ReplayDir       string
	WebSocketAddr   string
	GRPCAddr        string
	GRPCSecret      string
	SpectatorSecret string
	SnapshotPath    string
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Stdout     bool
}

// Angled reports whether rays are rotated into world space by the look-at camera.
// Boxes default to the angled view unless a side view was requested.
func (c *Config) Angled() bool {
	return c.Scene == scene.KindBox && !c.Side
}

// MovingLights reports whether the lights orbit. They freeze while a box spins so
// only the object appears to move.
func (c *Config) MovingLights() bool {
	return !(c.Rotate && c.Scene == scene.KindBox)
}

// RenderConfig is the immutable view of the configuration threaded through the renderer.
type RenderConfig struct {
	Scene        scene.Kind
	Rotate       bool
	Angled       bool
	MovingLights bool
	Headless     bool
	Orbit        bool
	Overlay      bool
	Columns      int
	Lines        int
	MaxFrames    int
}

// Render resolves the screen against the terminal's reported size and freezes the result.
func (c *Config) Render(termCols, termLines int) RenderConfig {
	cols, lines := ResolveScreen(c.Small, termCols, termLines)
	return RenderConfig{
		Scene:        c.Scene,
		Rotate:       c.Rotate,
		Angled:       c.Angled(),
		MovingLights: c.MovingLights(),
		Headless:     c.Headless,
		Orbit:        c.Orbit,
		Overlay:      c.Overlay && !c.Headless,
		Columns:      cols,
		Lines:        lines,
		MaxFrames:    c.MaxFrames,
	}
}

// ResolveScreen picks the character grid size. A small request or an unknown
// terminal dimension falls back to the default size.
func ResolveScreen(small bool, termCols, termLines int) (int, int) {
	if small {
		return DefaultColumns, DefaultLines
	}
	cols, lines := termCols, termLines
	if cols <= 0 {
		cols = DefaultColumns
	}
	if lines <= 0 {
		lines = DefaultLines
	}
	return cols, lines
}

func defaults() *Config {
	return &Config{
		Scene:   scene.KindSphere,
		Overlay: true,
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Path:       DefaultLogPath,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file, SDF_* environment
// variables and finally the positional words on the command line, in that order.
func Load(args []string) (*Config, error) {
	cfg := defaults()
	var problems []string

	//1.- Locate the optional file; a config=<path> word wins over SDF_CONFIG.
	path := strings.TrimSpace(os.Getenv("SDF_CONFIG"))
	for _, arg := range args {
		if value, ok := strings.CutPrefix(arg, "config="); ok {
			path = strings.TrimSpace(value)
		}
	}
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			problems = append(problems, err.Error())
		}
	}

	//2.- Environment variables override the file.
	problems = append(problems, applyEnv(cfg)...)

	//3.- Positional words mirror the historical command line and win over everything.
	problems = append(problems, applyArgs(cfg, args)...)

	//4.- Without a terminal image to protect, logs are mirrored to stdout.
	if cfg.Headless {
		cfg.Logging.Stdout = true
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return cfg, nil
}

type fileConfig struct {
	Scene     string `toml:"scene"`
	Rotate    *bool  `toml:"rotate"`
	Side      *bool  `toml:"side"`
	Small     *bool  `toml:"small"`
	Headless  *bool  `toml:"headless"`
	Orbit     *bool  `toml:"orbit"`
	Overlay   *bool  `toml:"overlay"`
	MaxFrames *int   `toml:"max_frames"`
	Log       struct {
		Level      string `toml:"level"`
		Path       string `toml:"path"`
		MaxSizeMB  *int   `toml:"max_size_mb"`
		MaxBackups *int   `toml:"max_backups"`
		MaxAgeDays *int   `toml:"max_age_days"`
		Compress   *bool  `toml:"compress"`
		Stdout     *bool  `toml:"stdout"`
	} `toml:"log"`
	Replay struct {
		Dir string `toml:"dir"`
	} `toml:"replay"`
	Spectate struct {
		WebSocketAddr string `toml:"websocket_addr"`
		GRPCAddr      string `toml:"grpc_addr"`
		GRPCSecret    string `toml:"grpc_secret"`
		TokenSecret   string `toml:"token_secret"`
	} `toml:"spectate"`
	Snapshot struct {
		Path string `toml:"path"`
	} `toml:"snapshot"`
}

func applyFile(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	defer file.Close()

	var raw fileConfig
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if raw.Scene != "" {
		kind, err := scene.ParseKind(raw.Scene)
		if err != nil {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		cfg.Scene = kind
	}
	setBool(&cfg.Rotate, raw.Rotate)
	setBool(&cfg.Side, raw.Side)
	setBool(&cfg.Small, raw.Small)
	setBool(&cfg.Headless, raw.Headless)
	setBool(&cfg.Orbit, raw.Orbit)
	setBool(&cfg.Overlay, raw.Overlay)
	setInt(&cfg.MaxFrames, raw.MaxFrames)

	setString(&cfg.Logging.Level, raw.Log.Level)
	setString(&cfg.Logging.Path, raw.Log.Path)
	setInt(&cfg.Logging.MaxSizeMB, raw.Log.MaxSizeMB)
	setInt(&cfg.Logging.MaxBackups, raw.Log.MaxBackups)
	setInt(&cfg.Logging.MaxAgeDays, raw.Log.MaxAgeDays)
	setBool(&cfg.Logging.Compress, raw.Log.Compress)
	setBool(&cfg.Logging.Stdout, raw.Log.Stdout)

	setString(&cfg.ReplayDir, raw.Replay.Dir)
	setString(&cfg.WebSocketAddr, raw.Spectate.WebSocketAddr)
	setString(&cfg.GRPCAddr, raw.Spectate.GRPCAddr)
	setString(&cfg.GRPCSecret, raw.Spectate.GRPCSecret)
	setString(&cfg.SpectatorSecret, raw.Spectate.TokenSecret)
	setString(&cfg.SnapshotPath, raw.Snapshot.Path)

	if cfg.MaxFrames < 0 {
		return fmt.Errorf("config file %s: max_frames must be non-negative", path)
	}
	return nil
}

func applyEnv(cfg *Config) []string {
	var problems []string

	if raw := strings.TrimSpace(os.Getenv("SDF_SCENE")); raw != "" {
		kind, err := scene.ParseKind(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("SDF_SCENE must be sphere or box, got %q", raw))
		} else {
			cfg.Scene = kind
		}
	}

	for _, flag := range []struct {
		key    string
		target *bool
	}{
		{"SDF_ROTATE", &cfg.Rotate},
		{"SDF_SIDE", &cfg.Side},
		{"SDF_SMALL", &cfg.Small},
		{"SDF_HEADLESS", &cfg.Headless},
		{"SDF_ORBIT", &cfg.Orbit},
		{"SDF_OVERLAY", &cfg.Overlay},
		{"SDF_LOG_COMPRESS", &cfg.Logging.Compress},
		{"SDF_LOG_STDOUT", &cfg.Logging.Stdout},
	} {
		if raw := strings.TrimSpace(os.Getenv(flag.key)); raw != "" {
			value, err := strconv.ParseBool(raw)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s must be a boolean value, got %q", flag.key, raw))
				continue
			}
			*flag.target = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SDF_MAX_FRAMES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("SDF_MAX_FRAMES must be a non-negative integer, got %q", raw))
		} else {
			cfg.MaxFrames = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SDF_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("SDF_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SDF_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("SDF_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("SDF_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("SDF_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	setString(&cfg.Logging.Level, strings.TrimSpace(os.Getenv("SDF_LOG_LEVEL")))
	setString(&cfg.Logging.Path, strings.TrimSpace(os.Getenv("SDF_LOG_PATH")))
	setString(&cfg.ReplayDir, strings.TrimSpace(os.Getenv("SDF_REPLAY_DIR")))
	setString(&cfg.WebSocketAddr, strings.TrimSpace(os.Getenv("SDF_WS_ADDR")))
	setString(&cfg.GRPCAddr, strings.TrimSpace(os.Getenv("SDF_GRPC_ADDR")))
	setString(&cfg.GRPCSecret, strings.TrimSpace(os.Getenv("SDF_GRPC_SECRET")))
	setString(&cfg.SpectatorSecret, strings.TrimSpace(os.Getenv("SDF_SPECTATOR_SECRET")))
	setString(&cfg.SnapshotPath, strings.TrimSpace(os.Getenv("SDF_SNAPSHOT_PATH")))

	return problems
}

func applyArgs(cfg *Config, args []string) []string {
	var problems []string
	for _, arg := range args {
		word := strings.ToLower(strings.TrimSpace(arg))
		switch {
		case word == "small":
			cfg.Small = true
		case word == "box":
			cfg.Scene = scene.KindBox
		case word == "sphere":
			cfg.Scene = scene.KindSphere
		case word == "rotate":
			cfg.Rotate = true
		case word == "side":
			cfg.Side = true
		case word == "headless":
			cfg.Headless = true
		case word == "orbit":
			cfg.Orbit = true
		case strings.HasPrefix(word, "config="):
		case strings.HasPrefix(word, "frames="):
			value, err := strconv.Atoi(strings.TrimPrefix(word, "frames="))
			if err != nil || value < 0 {
				problems = append(problems, fmt.Sprintf("frames must be a non-negative integer, got %q", arg))
				continue
			}
			cfg.MaxFrames = value
		default:
			problems = append(problems, fmt.Sprintf("unknown argument %q", arg))
		}
	}
	return problems
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}

func setInt(dst *int, value *int) {
	if value != nil {
		*dst = *value
	}
}
