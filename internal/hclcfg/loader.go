package hclcfg

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
	"github.com/vk/trainriggo/internal/fsutil"
)

// Loader composes config.Trees from HCL files.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a Loader with a fresh parser.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load parses every .hcl file reachable from the given paths, merges their
// top-level groups in order, applies overrides, and seals the tree. Parse
// failures are fatal; unresolved interpolations are not, they degrade at
// render time instead.
func (l *Loader) Load(ctx context.Context, paths []string, overrides []string) (*config.Tree, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("config path %q: %w", p, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(p, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("scanning config dir %q: %w", p, err)
			}
			files = append(files, found...)
		} else {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files found in %v", paths)
	}

	root := config.NewMapping("")
	for _, path := range files {
		file, diags := l.parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}
		fileRoot, err := translateBody(file, path)
		if err != nil {
			return nil, err
		}
		merge(root, fileRoot)
		logger.Debug(ctx, "config file loaded", "file", path)
	}

	for _, ov := range overrides {
		if err := applyOverride(root, ov); err != nil {
			return nil, err
		}
	}
	if len(overrides) > 0 {
		logger.Debug(ctx, "config overrides applied", "count", len(overrides))
	}

	return config.NewTree(root), nil
}

// translateBody converts one parsed file into an unsealed mapping: blocks
// become nested mappings, attributes become lazy expression leaves, ordered
// by source position.
func translateBody(file *hcl.File, path string) (*config.Node, error) {
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported HCL body type", path)
	}
	return translateSyntaxBody(body, file.Bytes, path, "")
}

func translateSyntaxBody(body *hclsyntax.Body, src []byte, path, name string) (*config.Node, error) {
	type entry struct {
		node *config.Node
		byte int
	}
	var entries []entry

	for _, attr := range body.Attributes {
		rng := attr.Expr.Range()
		raw := strings.TrimSpace(string(src[rng.Start.Byte:rng.End.Byte]))
		entries = append(entries, entry{
			node: config.NewAttr(attr.Name, attr.Expr, raw),
			byte: attr.SrcRange.Start.Byte,
		})
	}
	for _, block := range body.Blocks {
		if len(block.Labels) > 0 {
			return nil, fmt.Errorf("%s: config block %q takes no labels", path, block.Type)
		}
		child, err := translateSyntaxBody(block.Body, src, path, block.Type)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{node: child, byte: block.TypeRange.Start.Byte})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].byte < entries[j].byte })

	n := config.NewMapping(name)
	for _, e := range entries {
		n.SetChild(e.node)
	}
	return n, nil
}

// merge folds src into dst: mappings merge recursively, everything else
// replaces in place so later files win while keeping original positions.
func merge(dst, src *config.Node) {
	for _, child := range src.Children() {
		existing := dst.Child(child.Name())
		if existing != nil && existing.IsMapping() && child.IsMapping() {
			merge(existing, child)
			continue
		}
		dst.SetChild(child)
	}
}

// applyOverride applies a single "key.path=expression" override. The value
// side is parsed as an HCL expression, so strings need quoting and lists
// and references work as in files.
func applyOverride(root *config.Node, override string) error {
	key, val, found := strings.Cut(override, "=")
	if !found {
		return fmt.Errorf("malformed override %q: want key.path=value", override)
	}
	key = strings.TrimSpace(key)
	val = strings.TrimSpace(val)
	if key == "" || val == "" {
		return fmt.Errorf("malformed override %q: empty key or value", override)
	}

	expr, diags := hclsyntax.ParseExpression([]byte(val), "<override>", hcl.InitialPos)
	if diags.HasErrors() {
		return fmt.Errorf("parsing override %q: %w", override, diags)
	}

	segs := strings.Split(key, ".")
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next := node.Child(seg)
		if next == nil || !next.IsMapping() {
			next = config.NewMapping(seg)
			node.SetChild(next)
		}
		node = next
	}
	node.SetChild(config.NewAttr(segs[len(segs)-1], expr, val))
	return nil
}
