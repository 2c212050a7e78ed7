package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or every problem found joined into one error.
func Validate(cfg *Config) error {
	var errs []error

	// Serve, verify and TUI each own the process
	exclusive := 0
	for _, on := range []bool{cfg.ServeAddr != "", cfg.VerifyURL != "", cfg.TUIEnabled} {
		if on {
			exclusive++
		}
	}
	if exclusive > 1 {
		errs = append(errs, ValidationError{
			Field:   "mode",
			Message: "-serve, -verify and -tui are mutually exclusive",
		})
	}

	validFormats := map[string]bool{FormatJSON: true, FormatCSS: true, FormatText: true}
	if !validFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "format",
			Message: fmt.Sprintf("must be one of: json, css, text (got %q)", cfg.Format),
		})
	}

	if cfg.Count < -1 {
		errs = append(errs, ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("must be >= 0, or -1 for the layer default (got %d)", cfg.Count),
		})
	}

	if cfg.MaxCount < 1 {
		errs = append(errs, ValidationError{
			Field:   "max_count",
			Message: "must be at least 1",
		})
	} else if cfg.Count > cfg.MaxCount {
		errs = append(errs, ValidationError{
			Field:   "count",
			Message: fmt.Sprintf("must be at most max_count %d (got %d)", cfg.MaxCount, cfg.Count),
		})
	}

	if cfg.PNGPath != "" {
		if cfg.PNGWidth < 1 || cfg.PNGHeight < 1 {
			errs = append(errs, ValidationError{
				Field:   "png_size",
				Message: fmt.Sprintf("width and height must be positive (got %dx%d)", cfg.PNGWidth, cfg.PNGHeight),
			})
		}
	}

	if cfg.VerifyURL != "" {
		if err := validateURL(cfg.VerifyURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "verify_url",
				Message: err.Error(),
			})
		}
		if cfg.VerifyTimeout <= 0 {
			errs = append(errs, ValidationError{
				Field:   "verify_timeout",
				Message: "must be positive",
			})
		}
		if cfg.VerifyWait < 0 {
			errs = append(errs, ValidationError{
				Field:   "verify_wait",
				Message: "must be >= 0",
			})
		}
	}

	if cfg.ServeAddr != "" && cfg.ShutdownTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "shutdown_timeout",
			Message: "must be positive",
		})
	}

	if cfg.CacheSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "cache_size",
			Message: fmt.Sprintf("must be positive (got %d)", cfg.CacheSize),
		})
	}

	if cfg.LiveClients < 0 {
		errs = append(errs, ValidationError{
			Field:   "live_clients",
			Message: fmt.Sprintf("must be >= 0 (got %d)", cfg.LiveClients),
		})
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(cfg.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	for _, name := range cfg.Layers {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   "layers",
				Message: "layer names must not be empty",
			})
			break
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateURL checks if the URL is valid and uses http or https.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must have a host")
	}

	return nil
}
