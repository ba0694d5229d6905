package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds graph names accepted by the registry.
const maxNameLength = 128

// graphNameRegex matches names usable as registry keys and download filenames.
var graphNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateGraphName validates a graph name for safety and correctness.
// Names double as download filenames, so anything that could be used for
// path traversal or header injection is rejected.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
//   - Must start with a letter or digit
func ValidateGraphName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "graph name cannot be empty")
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "graph name too long (max %d characters)", maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "graph name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "graph name contains invalid characters: %q", pattern)
		}
	}

	if !graphNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid graph name: %q", name)
	}

	return nil
}

// ValidateFilename validates an uploaded filename.
// It must be a simple basename with a .json extension.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidFormat, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidFormat, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidFormat, "filename cannot be a hidden file")
	}

	if !strings.HasSuffix(strings.ToLower(filename), ".json") {
		return New(ErrCodeInvalidFormat, "unsupported file type %q (expected .json)", filename)
	}

	return nil
}
