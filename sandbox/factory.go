package sandbox

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/logger"
)

// NewExecutor creates the script executor described by the sandbox section
func NewExecutor(log *zap.Logger, cfg *config.Config) (ScriptExecutor, error) {
	executorConfig := Config{
		TimeoutMs:        cfg.Sandbox.TimeoutMs,
		MaxScriptSizeKB:  cfg.Sandbox.MaxScriptSizeKB,
		MaxCallStackSize: cfg.Sandbox.MaxCallStackSize,
		MaxConsoleLines:  cfg.Sandbox.MaxConsoleLines,
	}

	caps, err := CapabilitiesByName(cfg.Sandbox.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("sandbox.capabilities: %w", err)
	}

	return NewGojaExecutor(logger.Component(log, "sandbox"), &executorConfig, WithCapabilities(caps...)), nil
}
