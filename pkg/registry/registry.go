// Package registry holds the node type definition table: per-type defaults,
// sizing rules, parameter schemas and result fields for every canvas node type.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Definition describes one node type: display metadata, default geometry,
// the JSON schema its generation parameters must satisfy, and where a
// completed generation writes its result.
type Definition struct {
	Type         models.NodeType
	Name         string
	Description  string
	DefaultTitle string

	DefaultWidth  float64
	DefaultHeight float64
	MinWidth      float64
	MinHeight     float64

	// AspectRatio locks width/height for media node types; zero means the
	// node resizes freely.
	AspectRatio float64

	// Generates reports whether the type submits work to the generation
	// service. PromptInput is the only type that does not.
	Generates bool

	// ResultField names the NodeData field a completed generation fills.
	ResultField string

	DefaultParams map[string]any
	Schema        map[string]any
}

// AspectLocked reports whether resizing one dimension derives the other.
func (d *Definition) AspectLocked() bool {
	return d.AspectRatio > 0
}

// Registry maps node types to their definitions.
type Registry struct {
	logger      *slog.Logger
	definitions map[models.NodeType]*Definition
}

// NewRegistry creates an empty definition registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger,
		definitions: make(map[models.NodeType]*Definition),
	}
}

// Register adds a node type definition, replacing any previous one.
func (r *Registry) Register(def *Definition) {
	r.definitions[def.Type] = def
}

// Definition returns the definition for the given node type.
func (r *Registry) Definition(nodeType models.NodeType) (*Definition, error) {
	def, ok := r.definitions[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return def, nil
}

// Types returns all registered node types.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.definitions))
	for nodeType := range r.definitions {
		types = append(types, nodeType)
	}

	return types
}

// DefaultSize returns the default width and height for the node type. Unknown
// types fall back to a generic card size.
func (r *Registry) DefaultSize(nodeType models.NodeType) (float64, float64) {
	def, ok := r.definitions[nodeType]
	if !ok {
		return 240, 160
	}

	return def.DefaultWidth, def.DefaultHeight
}

// ValidateParams checks generation parameters against the type's JSON schema.
// Types without a schema accept any parameters.
func (r *Registry) ValidateParams(nodeType models.NodeType, params map[string]any) error {
	def, err := r.Definition(nodeType)
	if err != nil {
		return err
	}

	if def.Schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(def.Schema)
	dataLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate params for '%s': %w", nodeType, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid params for '%s': %s", nodeType, strings.Join(descriptions, "; "))
	}

	return nil
}

// HealthCheck reports whether the registry carries the full built-in type set.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.definitions) == 0 {
		return "Node type registry is empty", false
	}

	for _, nodeType := range models.NodeTypes() {
		if _, ok := r.definitions[nodeType]; !ok {
			return fmt.Sprintf("Node type '%s' is not registered", nodeType), false
		}
	}

	return fmt.Sprintf("Node type registry is healthy (%d types)", len(r.definitions)), true
}
