// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/atelierhq/atelier/pkg/registry"
)

// NewRegistry creates a node type registry with the built-in canvas types
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultTypes()

	return reg
}
