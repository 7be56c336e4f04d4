// Package platform holds small cross-cutting helpers.
package platform

import "github.com/google/uuid"

// NewID returns a new opaque unique identifier for a backup record.
func NewID() string {
	return uuid.New().String()
}
