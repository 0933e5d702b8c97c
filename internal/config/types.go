// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LogLevelDebug logs everything, including module resolution misses.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs discovery and activation progress.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs skipped archives and dependency cycles.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// LogFormatText is the human readable charm log format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt writes logfmt key=value lines.
	LogFormatLogfmt LogFormat = "logfmt"

	// OrderDiscovery activates plug-ins in the order they were found.
	OrderDiscovery ActivationOrder = "discovery"
	// OrderDependency activates dependencies before their dependents.
	OrderDependency ActivationOrder = "dependency"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultDebounce is the default delay between a plug-ins directory
	// change and the rescan.
	DefaultDebounce = 500 * time.Millisecond
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidActivationOrder is returned when an ActivationOrder value is not recognized.
	ErrInvalidActivationOrder = errors.New("invalid activation order")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDebounce is returned for a negative watch debounce.
	ErrInvalidDebounce = errors.New("invalid debounce")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// LogFormat selects the charm log formatter.
	LogFormat string

	// ActivationOrder selects the sequence `motoi start` uses.
	ActivationOrder string

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidValueError reports a config value outside its allowed set.
	// Unwrap returns the sentinel for the field kind.
	InvalidValueError struct {
		Field    string
		Value    string
		Allowed  []string
		sentinel error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Log        LogConfig        `json:"log" mapstructure:"log"`
		Activation ActivationConfig `json:"activation" mapstructure:"activation"`
		Watch      WatchConfig      `json:"watch" mapstructure:"watch"`
		UI         UIConfig         `json:"ui" mapstructure:"ui"`
	}

	// LogConfig configures the process logger.
	LogConfig struct {
		Level      LogLevel  `json:"level" mapstructure:"level"`
		Format     LogFormat `json:"format" mapstructure:"format"`
		Timestamps bool      `json:"timestamps" mapstructure:"timestamps"`
	}

	// ActivationConfig configures `motoi start`.
	ActivationConfig struct {
		Order ActivationOrder `json:"order" mapstructure:"order"`
		// KeepGoing continues activating after a failure (default: true).
		KeepGoing bool `json:"keep_going" mapstructure:"keep_going"`
		// Skip lists symbolic names that are never activated.
		Skip []string `json:"skip" mapstructure:"skip"`
	}

	// WatchConfig configures `motoi plugins watch`.
	WatchConfig struct {
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging, like --verbose.
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
	}
)

func invalid(sentinel error, field, value string, allowed ...string) []error {
	return []error{&InvalidValueError{Field: field, Value: value, Allowed: allowed, sentinel: sentinel}}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, invalid(ErrInvalidLogLevel, "log.level", string(l), "debug", "info", "warn", "error")
	}
}

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, invalid(ErrInvalidLogFormat, "log.format", string(f), "text", "json", "logfmt")
	}
}

// String returns the string representation of the ActivationOrder.
func (o ActivationOrder) String() string { return string(o) }

// IsValid returns whether the ActivationOrder is one of the defined orders.
func (o ActivationOrder) IsValid() (bool, []error) {
	switch o {
	case OrderDiscovery, OrderDependency:
		return true, nil
	default:
		return false, invalid(ErrInvalidActivationOrder, "activation.order", string(o), "discovery", "dependency")
	}
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, invalid(ErrInvalidColorScheme, "ui.color_scheme", string(cs), "auto", "dark", "light")
	}
}

// IsValid returns whether the LogConfig has valid fields.
func (c LogConfig) IsValid() (bool, []error) {
	var errs []error
	if ok, fieldErrs := c.Level.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	if ok, fieldErrs := c.Format.IsValid(); !ok {
		errs = append(errs, fieldErrs...)
	}
	return len(errs) == 0, errs
}

// IsValid returns whether the ActivationConfig has valid fields.
func (c ActivationConfig) IsValid() (bool, []error) {
	return c.Order.IsValid()
}

// IsValid returns whether the WatchConfig has valid fields. Zero means no
// debounce.
func (c WatchConfig) IsValid() (bool, []error) {
	if c.Debounce < 0 {
		return false, invalid(ErrInvalidDebounce, "watch.debounce", c.Debounce.String())
	}
	return true, nil
}

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	return c.ColorScheme.IsValid()
}

// IsValid returns whether the Config has valid fields. The errors of all
// sections are collected into one InvalidConfigError.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, section := range []interface{ IsValid() (bool, []error) }{c.Log, c.Activation, c.Watch, c.UI} {
		if ok, fieldErrs := section.IsValid(); !ok {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the InvalidConfigError of IsValid, or nil.
func (c Config) Validate() error {
	if ok, errs := c.IsValid(); !ok {
		return errs[0]
	}
	return nil
}

func (e *InvalidValueError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("%s: invalid value %q", e.Field, e.Value)
	}
	return fmt.Sprintf("%s: invalid value %q (valid: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// Unwrap returns the sentinel for the field kind.
func (e *InvalidValueError) Unwrap() error { return e.sentinel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap exposes ErrInvalidConfig and every field error.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Activation: ActivationConfig{
			Order:     OrderDependency,
			KeepGoing: true,
			Skip:      []string{},
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
