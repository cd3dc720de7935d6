package config

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/fgrep/internal/core"
	"github.com/standardbeagle/fgrep/internal/discovery"
	fgerrors "github.com/standardbeagle/fgrep/internal/errors"
)

// Validator checks a loaded configuration and fills in values left at zero.
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults reports every invalid field at once.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	var errs []error

	if err := discovery.ValidateFilter(cfg.Search.FileType); err != nil {
		errs = append(errs, fgerrors.NewConfigError("search.file_type", cfg.Search.FileType, err))
	}

	if _, err := core.ParseMmapMode(cfg.Scan.Mmap); err != nil {
		errs = append(errs, fgerrors.NewConfigError("scan.mmap", cfg.Scan.Mmap, err))
	}
	if cfg.Scan.MaxFileSize < 0 {
		errs = append(errs, fgerrors.NewConfigError("scan.max_file_size", fmt.Sprint(cfg.Scan.MaxFileSize),
			errors.New("cannot be negative")))
	}
	if cfg.Scan.MatcherCacheSize < 0 {
		errs = append(errs, fgerrors.NewConfigError("scan.matcher_cache_size", fmt.Sprint(cfg.Scan.MatcherCacheSize),
			errors.New("cannot be negative")))
	}

	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fgerrors.NewConfigError("exclude", pattern, doublestar.ErrBadPattern))
		}
	}

	if err := fgerrors.NewMultiError(errs).ErrOrNil(); err != nil {
		return err
	}
	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Scan.Mmap == "" {
		cfg.Scan.Mmap = string(core.MmapAuto)
	}
	if cfg.Search.FileType == "" {
		cfg.Search.FileType = Default().Search.FileType
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
