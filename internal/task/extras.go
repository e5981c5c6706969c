package task

import (
	"context"
	"fmt"

	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
)

// ProcessExtras applies optional utilities before a task starts. Currently
// that is warning suppression via extras.ignore_warnings.
func ProcessExtras(ctx context.Context, cfg *config.Tree) error {
	logger := ctxlog.FromContext(ctx)

	extras := cfg.Get("extras")
	if extras == nil {
		logger.Info(ctx, "No extras config provided, skipping optional utilities")
		return nil
	}
	if !extras.IsMapping() {
		return fmt.Errorf("extras config must be a mapping")
	}

	ignore, err := extras.OptBool("ignore_warnings", false)
	if err != nil {
		return fmt.Errorf("extras.ignore_warnings: %w", err)
	}
	if ignore {
		logger.Info(ctx, "Disabling warnings <extras.ignore_warnings=true>")
		logger.SuppressWarnings()
	}
	return nil
}
