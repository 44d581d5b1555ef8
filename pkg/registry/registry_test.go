package registry

import (
	"log/slog"
	"testing"

	"github.com/atelierhq/atelier/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry(slog.Default())
	reg.RegisterDefaultTypes()

	return reg
}

func TestRegistry_RegisterDefaultTypes_CoversAllTypes(t *testing.T) {
	reg := setupRegistry(t)

	for _, nodeType := range models.NodeTypes() {
		def, err := reg.Definition(nodeType)
		require.NoError(t, err, "type %s should be registered", nodeType)
		assert.Equal(t, nodeType, def.Type)
		assert.NotEmpty(t, def.DefaultTitle)
		assert.Positive(t, def.DefaultWidth)
		assert.Positive(t, def.DefaultHeight)
		assert.Positive(t, def.MinWidth)
		assert.Positive(t, def.MinHeight)
	}

	assert.Len(t, reg.Types(), len(models.NodeTypes()))
}

func TestRegistry_Definition_Unregistered(t *testing.T) {
	reg := NewRegistry(slog.Default())

	def, err := reg.Definition(models.NodeTypeImageGenerator)
	assert.Error(t, err)
	assert.Nil(t, def)
}

func TestRegistry_DefaultSize(t *testing.T) {
	reg := setupRegistry(t)

	width, height := reg.DefaultSize(models.NodeTypeVideoGenerator)
	assert.InDelta(t, 320.0, width, 0)
	assert.InDelta(t, 180.0, height, 0)

	// Unknown types fall back to the generic card size.
	width, height = reg.DefaultSize(models.NodeType("bogus"))
	assert.InDelta(t, 240.0, width, 0)
	assert.InDelta(t, 160.0, height, 0)
}

func TestRegistry_AspectLock(t *testing.T) {
	reg := setupRegistry(t)

	locked := []models.NodeType{
		models.NodeTypeImageGenerator,
		models.NodeTypeVideoGenerator,
		models.NodeTypeImageEditor,
	}

	for _, nodeType := range locked {
		def, err := reg.Definition(nodeType)
		require.NoError(t, err)
		assert.True(t, def.AspectLocked(), "%s should be aspect locked", nodeType)
	}

	def, err := reg.Definition(models.NodeTypePromptInput)
	require.NoError(t, err)
	assert.False(t, def.AspectLocked())
}

func TestRegistry_OnlyPromptInputDoesNotGenerate(t *testing.T) {
	reg := setupRegistry(t)

	for _, nodeType := range models.NodeTypes() {
		def, err := reg.Definition(nodeType)
		require.NoError(t, err)

		if nodeType == models.NodeTypePromptInput {
			assert.False(t, def.Generates)
		} else {
			assert.True(t, def.Generates, "%s should generate", nodeType)
		}
	}
}

func TestRegistry_ValidateParams(t *testing.T) {
	reg := setupRegistry(t)

	tests := []struct {
		name     string
		nodeType models.NodeType
		params   map[string]any
		wantErr  bool
	}{
		{
			name:     "valid image params",
			nodeType: models.NodeTypeImageGenerator,
			params:   map[string]any{"aspect_ratio": "16:9", "count": 2},
		},
		{
			name:     "invalid enum value",
			nodeType: models.NodeTypeImageGenerator,
			params:   map[string]any{"aspect_ratio": "2:1"},
			wantErr:  true,
		},
		{
			name:     "count above maximum",
			nodeType: models.NodeTypeImageGenerator,
			params:   map[string]any{"count": 9},
			wantErr:  true,
		},
		{
			name:     "unknown property rejected",
			nodeType: models.NodeTypeVideoGenerator,
			params:   map[string]any{"fps": 30},
			wantErr:  true,
		},
		{
			name:     "nil params accepted",
			nodeType: models.NodeTypeStoryGenerator,
			params:   nil,
		},
		{
			name:     "no schema accepts anything",
			nodeType: models.NodeTypePromptInput,
			params:   map[string]any{"free": "form"},
		},
		{
			name:     "strength out of range",
			nodeType: models.NodeTypeImageEditor,
			params:   map[string]any{"strength": 1.5},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateParams(tt.nodeType, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_HealthCheck(t *testing.T) {
	reg := NewRegistry(slog.Default())

	message, ok := reg.HealthCheck()
	assert.False(t, ok)
	assert.Contains(t, message, "empty")

	reg.RegisterDefaultTypes()

	message, ok = reg.HealthCheck()
	assert.True(t, ok)
	assert.Contains(t, message, "healthy")
}
