package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFile is returned for files the parser cannot read
var ErrUnsupportedFile = errors.New("unsupported measurement file")

// Validator checks input files and output directories before a command
// touches them, so failures name the path instead of a parser position
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a new file validator
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger.With(slog.String("component", "file_validator"))}
}

// ValidateFile checks that path exists, is a regular file and can be opened
func (v *Validator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	f.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateMeasurementFile checks a file the parser is about to read
func (v *Validator) ValidateMeasurementFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%w: %s is a temporary Excel file", ErrUnsupportedFile, path)
	}
	if !IsMeasurementFile(base) {
		return fmt.Errorf("%w: %s (expected one of %s)", ErrUnsupportedFile, path,
			strings.Join(MeasurementExtensions, ", "))
	}
	return nil
}

// ValidateOutputDirectory creates dir if needed and checks it is writable
func (v *Validator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}
