package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/startterm/startsh/core/config"
	"github.com/startterm/startsh/core/sandbox"
	"github.com/startterm/startsh/core/vfs"
)

// NewOptions fills shell options from a loaded configuration. The caller
// still chooses the surface and exit callback.
func NewOptions(cfg *config.Configuration, provider vfs.ResourceProvider, logger *zap.Logger) Options {
	box := sandbox.DefaultConfig()
	if timeout := time.Duration(cfg.SandboxTimeout); timeout > 0 {
		box.Timeout = timeout
	}

	return Options{
		Rows:            cfg.Rows,
		Cols:            cfg.Cols,
		Provider:        provider,
		Store:           cfg.Store(),
		User:            cfg.User,
		Group:           cfg.Group,
		Hostname:        cfg.Hostname,
		Prompt:          cfg.Prompt,
		Motd:            cfg.Motd,
		HistorySize:     cfg.HistorySize,
		Sandbox:         box,
		DefaultPackages: cfg.DefaultPackages,
		Logger:          logger,
	}
}
