package config

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Tree is the composed, read-only configuration for one run.
type Tree struct {
	root    *Node
	evalCtx *hcl.EvalContext
}

// NewTree freezes the composed root mapping into a Tree and builds its
// evaluation context from whatever parts of the top-level groups resolve.
func NewTree(root *Node) *Tree {
	t := &Tree{root: root, evalCtx: &hcl.EvalContext{Variables: map[string]cty.Value{}}}
	adopt(root, t)

	// Fixpoint over individual values: each pass publishes the resolvable
	// parts of every top-level group into the context, which may unlock
	// expressions referencing them, including references within the same
	// group. Values that never resolve stay out of the context; their
	// consumers degrade at use time.
	resolved := -1
	for progressed := true; progressed; {
		total := 0
		for _, top := range root.children {
			v, n := partialResolve(top)
			total += n
			if n > 0 {
				t.evalCtx.Variables[top.name] = v
			}
		}
		progressed = total > resolved
		resolved = total
	}
	return t
}

// partialResolve resolves as much of a node as currently possible and
// counts the leaves that succeeded. Failed mapping children are simply
// omitted from the resulting object.
func partialResolve(n *Node) (cty.Value, int) {
	if !n.IsMapping() {
		v, err := n.Resolve()
		if err != nil {
			return cty.NilVal, 0
		}
		return v, 1
	}
	vals := make(map[string]cty.Value, len(n.children))
	count := 0
	for _, c := range n.children {
		v, cn := partialResolve(c)
		if cn > 0 {
			vals[c.name] = v
			count += cn
		}
	}
	if count == 0 {
		return cty.NilVal, 0
	}
	return cty.ObjectVal(vals), count
}

func adopt(n *Node, t *Tree) {
	n.tree = t
	for _, c := range n.children {
		adopt(c, t)
	}
}

// Root returns the top-level mapping.
func (t *Tree) Root() *Node { return t.root }

// Top returns the top-level groups in source order.
func (t *Tree) Top() []*Node { return t.root.children }

// Get looks up a node by dotted path, e.g. "paths.output_dir".
// Returns nil if any segment is absent.
func (t *Tree) Get(path string) *Node {
	n := t.root
	for _, seg := range strings.Split(path, ".") {
		n = n.Child(seg)
		if n == nil {
			return nil
		}
	}
	return n
}

// Has reports whether a node exists at the dotted path.
func (t *Tree) Has(path string) bool { return t.Get(path) != nil }

// Flatten maps every top-level key to its resolved native Go value, the
// shape submitted to experiment loggers as hyperparameters. Groups that
// fail to resolve degrade to their unresolved source text.
func (t *Tree) Flatten() map[string]any {
	out := make(map[string]any, len(t.root.children))
	for _, top := range t.root.children {
		v, err := top.Interface()
		if err != nil {
			out[top.name] = rawForm(top)
			continue
		}
		out[top.name] = v
	}
	return out
}

func rawForm(n *Node) any {
	if !n.IsMapping() {
		return n.Raw()
	}
	out := make(map[string]any, len(n.children))
	for _, c := range n.children {
		out[c.name] = rawForm(c)
	}
	return out
}
