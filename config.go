package honua

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/honua-io/Honua.Server-sub000/filter"
	"github.com/honua-io/Honua.Server-sub000/geometry"
	"github.com/honua-io/Honua.Server-sub000/sqlgen"
)

// Config contains configuration for a filter engine.
type Config struct {
	// Dialect names the SQL backend: "postgis", "sqlserver", "mysql" or
	// "spatialite".
	// REQUIRED.
	Dialect string

	// MaxCost caps filter complexity. Filters scoring above it are
	// rejected before translation.
	// OPTIONAL: If 0, uses filter.DefaultMaxCost.
	MaxCost int

	// DefaultSRID is assumed for geometry literals that do not declare a
	// CRS.
	// OPTIONAL: If 0, uses 4326 (WGS 84).
	DefaultSRID int

	// Units restricts the distance units filters may carry, e.g.
	// []string{"m", "km"}. Any supported spelling names its unit.
	// OPTIONAL: If empty, every supported unit is accepted.
	Units []string

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level
}

// Standard errors returned by engine construction.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid engine config")
)

func (c *Config) validate() (sqlgen.Dialect, error) {
	if c.Dialect == "" {
		return nil, fmt.Errorf("%w: Dialect is required", ErrInvalidConfig)
	}
	dialect, err := sqlgen.Lookup(c.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MaxCost < 0 {
		return nil, fmt.Errorf("%w: MaxCost must not be negative", ErrInvalidConfig)
	}
	if c.DefaultSRID < 0 {
		return nil, fmt.Errorf("%w: DefaultSRID must not be negative", ErrInvalidConfig)
	}
	for _, u := range c.Units {
		if !geometry.KnownUnit(u) {
			return nil, fmt.Errorf("%w: unknown distance unit %q", ErrInvalidConfig, u)
		}
	}
	return dialect, nil
}

func (c *Config) maxCost() int {
	if c.MaxCost > 0 {
		return c.MaxCost
	}
	return filter.DefaultMaxCost
}

func (c *Config) defaultSRID() int {
	if c.DefaultSRID > 0 {
		return c.DefaultSRID
	}
	return 4326
}

// resolveLogger returns the logger to use based on config.
func (c *Config) resolveLogger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: *c.LogLevel,
		}))
	}
	return slog.Default()
}
