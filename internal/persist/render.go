package persist

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/trainriggo/internal/config"
	"github.com/vk/trainriggo/internal/ctxlog"
)

// renderTree renders the configuration as a labeled tree: one branch per
// top-level key, mapping branches as resolved YAML, scalars as their string
// form. Resolution failures degrade to the unresolved source text with a
// warning instead of aborting the render.
func renderTree(ctx context.Context, cfg *config.Tree) string {
	var b strings.Builder
	b.WriteString("CONFIG\n")

	top := cfg.Top()
	for i, group := range top {
		last := i == len(top)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		b.WriteString(branch + group.Name() + "\n")
		for _, line := range strings.Split(branchContent(ctx, group), "\n") {
			b.WriteString(indent + line + "\n")
		}
	}
	return b.String()
}

func branchContent(ctx context.Context, n *config.Node) string {
	if n.IsMapping() {
		out, err := yaml.Marshal(yamlNode(ctx, n))
		if err != nil {
			// yaml.Node trees built here always marshal; a failure
			// means a bug, not bad config.
			return fmt.Sprintf("<render error: %v>", err)
		}
		return strings.TrimRight(string(out), "\n")
	}
	v, err := n.Interface()
	if err != nil {
		warnUnresolved(ctx, n, err)
		return n.Raw()
	}
	return fmt.Sprintf("%v", v)
}

// yamlNode converts a config mapping into an ordered yaml.Node tree.
// Attributes that fail to resolve are emitted as their raw source text.
func yamlNode(ctx context.Context, n *config.Node) *yaml.Node {
	if n.IsMapping() {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, c := range n.Children() {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name()}
			m.Content = append(m.Content, key, yamlNode(ctx, c))
		}
		return m
	}

	v, err := n.Interface()
	if err != nil {
		warnUnresolved(ctx, n, err)
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Raw()}
	}
	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Raw()}
	}
	return node
}

func warnUnresolved(ctx context.Context, n *config.Node, err error) {
	ctxlog.FromContext(ctx).Warn(ctx,
		fmt.Sprintf("Could not resolve %q, rendering unresolved form", n.Name()),
		"error", err)
}
