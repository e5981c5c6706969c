package persist

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gookit/color"
	"github.com/mitchellh/go-wordwrap"

	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
)

// renderWidth is the fixed text width of the file render.
const renderWidth = 120

// SaveConfig renders the configuration tree and writes it twice: colored to
// the console writer and plain at a fixed width to paths.config_path.
// Executes only on the rank-zero process.
func SaveConfig(ctx context.Context, cfg *config.Tree, console io.Writer) error {
	logger := ctxlog.FromContext(ctx)
	if logger.Rank() != 0 {
		return nil
	}

	rendered := renderTree(ctx, cfg)

	fmt.Fprint(console, colorize(rendered))

	pathNode := cfg.Get("paths.config_path")
	if pathNode == nil {
		return fmt.Errorf("paths.config_path is not configured")
	}
	path, err := pathNode.AsString()
	if err != nil {
		return fmt.Errorf("paths.config_path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(wordwrap.WrapString(rendered, renderWidth)), 0o644); err != nil {
		return fmt.Errorf("writing config render: %w", err)
	}
	return nil
}

// colorize highlights the top-level branch labels for the console render.
func colorize(rendered string) string {
	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		if rest, ok := strings.CutPrefix(line, "├── "); ok {
			lines[i] = "├── " + color.Cyan.Sprint(rest)
		} else if rest, ok := strings.CutPrefix(line, "└── "); ok {
			lines[i] = "└── " + color.Cyan.Sprint(rest)
		}
	}
	return strings.Join(lines, "\n")
}

// SaveTags logs the run's tags and writes them verbatim to paths.tags_path,
// one per line. Tags are mandatory run metadata: an absent tags field fails
// before any file I/O. Executes only on the rank-zero process.
func SaveTags(ctx context.Context, cfg *config.Tree) error {
	logger := ctxlog.FromContext(ctx)
	if logger.Rank() != 0 {
		return nil
	}

	tagsNode := cfg.Get("tags")
	if tagsNode == nil {
		return fmt.Errorf("no tags specified: add a tags list to the run config")
	}
	tags, err := tagsNode.AsStringSlice()
	if err != nil {
		return fmt.Errorf("reading tags: %w", err)
	}

	logger.Info(ctx, fmt.Sprintf("Tags: %v", tags))

	pathNode := cfg.Get("paths.tags_path")
	if pathNode == nil {
		return fmt.Errorf("paths.tags_path is not configured")
	}
	path, err := pathNode.AsString()
	if err != nil {
		return fmt.Errorf("paths.tags_path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating tags output dir: %w", err)
	}
	content := strings.Join(tags, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing tags: %w", err)
	}
	return nil
}
