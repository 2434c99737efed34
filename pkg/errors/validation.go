package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateGeneName validates a requested gene symbol.
//
// The rules are intentionally conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators (gene names end up as JSON keys the viewer turns into file names)
//   - Maximum length of 256 characters
func ValidateGeneName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "gene name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "gene name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "gene name %q contains control characters", name)
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "gene name %q contains path separators", name)
	}

	return nil
}

// ValidateLabelName validates a requested label column name.
func ValidateLabelName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "label name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label name %q contains control characters", name)
		}
	}
	return nil
}

// ValidateOutputPath validates the output directory path of an export run.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Path cannot resolve to the current directory or a filesystem root,
//     since the directory is deleted after packaging
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "output path contains invalid characters")
		}
	}

	clean := filepath.Clean(path)
	if clean == "." || clean == ".." || clean == string(filepath.Separator) || filepath.Dir(clean) == clean {
		return New(ErrCodeInvalidInput, "output path %q must name a new directory", path)
	}

	return nil
}
