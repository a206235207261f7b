// Package utils contains small helper functions used across the project.
//
// These are usually generic helpers that don't belong to a specific domain.
package utils

import (
	"encoding/json"
)

// PrettyJSON renders any Go value as JSON indented by two spaces.
//
// Useful for human-readable dumps (audit sections of emails, debugging).
// If the value contains unsupported types (channels, funcs, circular refs),
// json.MarshalIndent will return an error.
func PrettyJSON(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
