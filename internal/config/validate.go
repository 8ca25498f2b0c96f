package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyGraphDir indicates a missing graph directory setting
	ErrEmptyGraphDir = errors.New("empty graph directory")

	// ErrInvalidWorkers indicates an invalid worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidPattern indicates an empty glob pattern entry
	ErrInvalidPattern = errors.New("invalid scan pattern")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Graph.Dir) == "" {
		errs = append(errs, fmt.Errorf("%w: graph.dir is required", ErrEmptyGraphDir))
	}

	if cfg.Scan.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: scan.workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Scan.Workers))
	}

	// Patterns may be empty (the scanner just finds nothing), but a blank
	// entry is always a mistake.
	for _, p := range cfg.Scan.Code {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%w: blank entry in scan.code", ErrInvalidPattern))
		}
	}
	for _, p := range cfg.Scan.Ignore {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%w: blank entry in scan.ignore", ErrInvalidPattern))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
