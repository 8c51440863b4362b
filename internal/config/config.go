package config

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vtree/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "vtree.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "vtree.yaml"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultBufferSize is the default WebSocket read and write buffer size.
	DefaultBufferSize = 4096

	// DefaultMaxBodyBytes bounds POST bodies.
	DefaultMaxBodyBytes = 1 << 20

	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultBufferCapacity bounds a host's reply buffer. It fits one
	// maximum frame payload plus its header.
	DefaultBufferCapacity = 65535 + 4

	// DefaultSnapshotDir is used by the file backend when Dir is empty.
	DefaultSnapshotDir = ".vtree/snapshots"

	// DefaultSQLiteDSN is used by the sqlite backend when DSN is empty.
	DefaultSQLiteDSN = "file:vtree-snapshots.db"

	// DefaultNamespace prefixes every metric name.
	DefaultNamespace = "vtree"

	// DefaultTracerName names the OpenTelemetry tracer.
	DefaultTracerName = "github.com/vango-dev/vtree"
)

// Environment overrides applied after loading.
const (
	EnvAddr     = "VTREE_ADDR"
	EnvLogLevel = "VTREE_LOG_LEVEL"
)

// Snapshot backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Config represents the complete vtree configuration.
type Config struct {
	// Server contains HTTP and WebSocket server settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Buffer bounds the reply buffer of each component host.
	Buffer BufferConfig `json:"buffer" yaml:"buffer"`

	// Snapshot selects where hosts persist their current tree.
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`

	// Metrics controls Prometheus instrumentation.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing controls OpenTelemetry spans.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Log controls the slog handler.
	Log LogConfig `json:"log" yaml:"log"`

	// dir is the directory the configuration was loaded from.
	dir string
}

// ServerConfig contains server settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" validate:"required"`
	ReadBufferSize  int           `json:"readBufferSize" yaml:"readBufferSize" validate:"gte=0"`
	WriteBufferSize int           `json:"writeBufferSize" yaml:"writeBufferSize" validate:"gte=0"`
	MaxBodyBytes    int64         `json:"maxBodyBytes" yaml:"maxBodyBytes" validate:"gt=0"`
	ShutdownTimeout Duration      `json:"shutdownTimeout" yaml:"shutdownTimeout" validate:"gte=0"`
	PongWait        Duration      `json:"pongWait" yaml:"pongWait" validate:"gte=0"`
}

// BufferConfig contains reply buffer settings.
type BufferConfig struct {
	Capacity int `json:"capacity" yaml:"capacity" validate:"gt=0"`
}

// SnapshotConfig selects and configures a snapshot backend.
type SnapshotConfig struct {
	Backend  string `json:"backend" yaml:"backend" validate:"omitempty,oneof=memory file sqlite s3"`
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty" validate:"required_if=Backend file"`
	DSN      string `json:"dsn,omitempty" yaml:"dsn,omitempty" validate:"required_if=Backend sqlite"`
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty" validate:"required_if=Backend s3"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty" validate:"required_if=Backend s3"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=text json"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadBufferSize:  DefaultBufferSize,
			WriteBufferSize: DefaultBufferSize,
			MaxBodyBytes:    DefaultMaxBodyBytes,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Buffer: BufferConfig{
			Capacity: DefaultBufferCapacity,
		},
		Snapshot: SnapshotConfig{
			Backend: BackendMemory,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		dir: ".",
	}
}

// Load reads the configuration from dir. vtree.json is tried first, then
// vtree.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("VT122").
		WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " in " + dir).
		WithSuggestion("Create " + ConfigFileName + " or run without --config to use defaults")
}

// LoadOrDefault is Load, falling back to New when dir has no config file.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		cfg := New()
		cfg.dir = dir
		cfg.applyEnv()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(dir)
}

// LoadFile reads the configuration from a specific file. The format is
// chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("VT122").
				WithFile(path).
				WithSuggestion("Check the --config path")
		}
		return nil, errors.New("VT121").WithFile(path).Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.New("VT123").WithFile(path)
	}
	if err != nil {
		return nil, errors.New("VT121").WithFile(path).Wrap(err)
	}

	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		var ce *errors.Error
		if errors.As(err, &ce) {
			ce.WithFile(path)
		}
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero values with defaults. Snapshot paths are resolved
// relative to the config directory.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = DefaultBufferSize
	}
	if c.Server.WriteBufferSize == 0 {
		c.Server.WriteBufferSize = DefaultBufferSize
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if c.Buffer.Capacity == 0 {
		c.Buffer.Capacity = DefaultBufferCapacity
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = BackendMemory
	}
	switch c.Snapshot.Backend {
	case BackendFile:
		if c.Snapshot.Dir == "" {
			c.Snapshot.Dir = DefaultSnapshotDir
		}
		if !filepath.IsAbs(c.Snapshot.Dir) {
			c.Snapshot.Dir = filepath.Join(c.dir, c.Snapshot.Dir)
		}
	case BackendSQLite:
		if c.Snapshot.DSN == "" {
			c.Snapshot.DSN = DefaultSQLiteDSN
		}
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.New("VT120").Wrap(err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	return errors.New("VT120").
		WithDetail(strings.Join(fields, "; ")).
		Wrap(err)
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "url":
		return field + " must be a URL"
	default:
		return field + " failed " + fe.Tag() + " " + fe.Param()
	}
}

// Dir returns the directory the configuration was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// Exists checks if a configuration file exists in dir.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from startDir to find a directory with a
// configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("VT122").
				WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
