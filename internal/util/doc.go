// Package util provides common utility functions used across the mcp-fic module.
//
// This package contains helper functions for string manipulation and formatting
// that don't fit into domain-specific packages.
//
// Key utilities:
//   - SafeTruncate: Safely truncates strings for logging and error bodies
//   - TruncateBody: Truncates upstream response bodies with a visible marker
//   - FirstNonEmpty: Resolves layered configuration values
package util
