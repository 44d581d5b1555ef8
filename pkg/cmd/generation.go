package cmd

import (
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier/pkg/config"
	"github.com/atelierhq/atelier/pkg/protocol"
	"github.com/atelierhq/atelier/pkg/providers/httpapi"
	"github.com/atelierhq/atelier/pkg/providers/sim"
)

// NewGenerationService builds the generation backend from the providers
// config file. No file or an empty provider list selects the simulated
// backend, so the engine runs end to end without external services.
func NewGenerationService(configPath string, simSteps int, logger *slog.Logger) (protocol.GenerationService, error) {
	cfg := config.LoadProvidersConfigOrDefault(configPath)

	err := config.ValidateProvidersConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid providers config: %w", err)
	}

	if len(cfg.Providers) == 0 {
		logger.Info("no generation providers configured, using simulated backend")

		return sim.NewService(logger, simSteps), nil
	}

	return httpapi.NewService(cfg, logger), nil
}
