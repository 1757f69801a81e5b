package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/margin/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "storage.backend")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels, lowercased
func ValidLogLevels() []string {
	levels := logging.ValidLevels()
	for i, level := range levels {
		levels[i] = strings.ToLower(level)
	}
	return levels
}

// ValidExportFormats returns the list of valid snapshot formats
func ValidExportFormats() []string {
	return []string{"json", "yaml"}
}

// maxPathLength is a conservative limit shared by most filesystems
const maxPathLength = 4096

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateStorage()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateExport()...)
	errors = append(errors, c.validateImport()...)

	return errors
}

// validateStorage validates the StorageConfig
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidBackends(), c.Storage.Backend) {
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Value:   c.Storage.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	// Only the selected backend's location is required
	switch c.Storage.Backend {
	case BackendJSON:
		errors = append(errors, validatePath("storage.dir", c.Storage.Dir, true)...)
	case BackendSQLite:
		errors = append(errors, validatePath("storage.sqlite_path", c.Storage.SQLitePath, true)...)
	}

	if c.Storage.LockTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "storage.lock_timeout_ms",
			Value:   c.Storage.LockTimeoutMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.Enabled {
		errors = append(errors, validatePath("logging.dir", c.Logging.Dir, false)...)
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateExport validates the ExportConfig
func (c *Config) validateExport() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidExportFormats(), c.Export.Format) {
		errors = append(errors, ValidationError{
			Field:   "export.format",
			Value:   c.Export.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidExportFormats(), ", ")),
		})
	}

	if c.Export.Indent < 0 || c.Export.Indent > 8 {
		errors = append(errors, ValidationError{
			Field:   "export.indent",
			Value:   c.Export.Indent,
			Message: "must be between 0 and 8",
		})
	}

	return errors
}

// validateImport validates the ImportConfig
func (c *Config) validateImport() []ValidationError {
	var errors []ValidationError

	const maxParallel = 64
	if c.Import.Parallel < 1 || c.Import.Parallel > maxParallel {
		errors = append(errors, ValidationError{
			Field:   "import.parallel",
			Value:   c.Import.Parallel,
			Message: fmt.Sprintf("must be between 1 and %d", maxParallel),
		})
	}

	return errors
}

// validatePath checks a filesystem path setting. An empty path is only an
// error when required is set.
func validatePath(field, path string, required bool) []ValidationError {
	var errors []ValidationError

	if path == "" {
		if required {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   path,
				Message: "is required",
			})
		}
		return errors
	}

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
