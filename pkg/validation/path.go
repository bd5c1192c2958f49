// Package validation provides input validation functions for security-critical operations.
// These functions implement defense-in-depth against path traversal and injection attacks.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/distribution/reference"
)

// Repository name validation per the distribution grammar:
// - Lowercase letters, digits, and separators (., _, __, one or more -)
// - Separators cannot start/end a path component
// - Allows nested paths like "myorg/myapp"
var repoNameRegex = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*(?:/[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*)*$`)

// Tags follow the distribution tag grammar: word characters, dots and dashes,
// starting with a word character, at most 128 characters.
var tagRegex = regexp.MustCompile(`^` + reference.TagRegexp.String() + `$`)

// Digest validation for content-addressable storage: sha256 only.
var digestRegex = regexp.MustCompile(`^sha256:[a-f0-9]{64}$`)

// UUID validation for blob uploads:
// - Format: standard UUID v4 (e.g., 550e8400-e29b-41d4-a716-446655440000)
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// MaxRepositoryNameLength is the maximum allowed length for repository names.
const MaxRepositoryNameLength = reference.NameTotalLengthMax

// ValidateRepositoryName validates a repository name.
// Returns an error if the name is invalid or could enable path traversal.
func ValidateRepositoryName(name string) error {
	if name == "" {
		return fmt.Errorf("repository name cannot be empty")
	}

	if len(name) > MaxRepositoryNameLength {
		return fmt.Errorf("repository name too long: %d chars (max %d)", len(name), MaxRepositoryNameLength)
	}

	if strings.Contains(name, "..") {
		return fmt.Errorf("repository name contains path traversal sequence")
	}

	if !repoNameRegex.MatchString(name) {
		return fmt.Errorf("invalid repository name format: must contain only lowercase letters, digits, and separators (., _, -)")
	}

	// The name must parse as a bare repository, without tag or digest.
	ref, err := reference.Parse(name)
	if err != nil {
		return fmt.Errorf("invalid repository name: %w", err)
	}
	if _, ok := ref.(reference.Tagged); ok {
		return fmt.Errorf("invalid repository name: unexpected tag")
	}

	return nil
}

// ValidateReference validates a manifest reference: a tag or a digest.
func ValidateReference(ref string) error {
	if ref == "" {
		return fmt.Errorf("reference cannot be empty")
	}

	if strings.Contains(ref, "..") {
		return fmt.Errorf("reference contains path traversal sequence")
	}

	if digestRegex.MatchString(ref) {
		return nil
	}

	if !tagRegex.MatchString(ref) {
		return fmt.Errorf("invalid reference format: must be a valid tag or digest")
	}

	return nil
}

// ValidateDigest validates a content digest of the form sha256:<64 hex chars>.
func ValidateDigest(digest string) error {
	if digest == "" {
		return fmt.Errorf("digest cannot be empty")
	}

	if strings.Contains(digest, "..") {
		return fmt.Errorf("digest contains path traversal sequence")
	}

	if !digestRegex.MatchString(digest) {
		return fmt.Errorf("invalid digest format: must be sha256:<64 hex chars>")
	}

	return nil
}

// IsDigest reports whether s is a valid digest (as opposed to a tag).
func IsDigest(s string) bool {
	return ValidateDigest(s) == nil
}

// ValidateUUID validates a blob upload UUID.
// UUIDs are server-generated but still validated for safety.
func ValidateUUID(uuid string) error {
	if uuid == "" {
		return fmt.Errorf("UUID cannot be empty")
	}

	if strings.Contains(uuid, "..") {
		return fmt.Errorf("UUID contains path traversal sequence")
	}

	if !uuidRegex.MatchString(uuid) {
		return fmt.Errorf("invalid UUID format")
	}

	return nil
}

// ValidatePath sanitizes and validates a relative storage key to prevent traversal attacks.
// Returns the cleaned path or an error if the path is unsafe.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("path traversal not allowed")
	}

	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("absolute paths not allowed")
	}

	return cleanPath, nil
}

// ValidatePathWithinRoot validates that a constructed path stays within the root directory.
// This provides defense-in-depth after filepath.Join operations.
func ValidatePathWithinRoot(rootDir, fullPath string) error {
	cleanRoot := filepath.Clean(rootDir)
	cleanPath := filepath.Clean(fullPath)

	if !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) && cleanPath != cleanRoot {
		return fmt.Errorf("path escapes root directory")
	}

	return nil
}
